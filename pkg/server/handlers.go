package server

import (
	"errors"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/contract"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/service"
)

type Services struct {
	Tracking      *service.TrackingService
	ModelRegistry *service.ModelRegistryService
	Artifacts     *service.ArtifactsService
}

type HandlerMap = map[string]fiber.Handler

func handleBody[Input any, Output any](
	parser contract.HTTPRequestParser, inner func(*Input) (*Output, *contract.Error),
) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		var input Input
		if err := parser.ParseBody(ctx, &input); err != nil {
			return err
		}

		output, err := inner(&input)
		if err != nil {
			return err
		}

		return ctx.JSON(output)
	}
}

func handleQuery[Input any, Output any](
	parser contract.HTTPRequestParser, inner func(*Input) (*Output, *contract.Error),
) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		var input Input
		if err := parser.ParseQuery(ctx, &input); err != nil {
			return err
		}

		output, err := inner(&input)
		if err != nil {
			return err
		}

		return ctx.JSON(output)
	}
}

func downloadArtifactHandler(artifacts *service.ArtifactsService) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		local, contractError := artifacts.LocalPath(ctx.Params("+"))
		if contractError != nil {
			return contractError
		}

		file, err := os.Open(local)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return contract.NewError(contract.ErrorCodeResourceDoesNotExist, "artifact not found: "+ctx.Params("+"))
			}

			return contract.NewErrorWith(contract.ErrorCodeInternalError, "failed to open artifact", err)
		}

		info, err := file.Stat()
		if err != nil || info.IsDir() {
			_ = file.Close()

			return contract.NewError(contract.ErrorCodeInvalidParameterValue, "not a file: "+ctx.Params("+"))
		}

		ctx.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)

		return ctx.SendStream(file, int(info.Size()))
	}
}

func uploadArtifactHandler(artifacts *service.ArtifactsService) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		output, err := artifacts.UploadArtifact(ctx.Params("+"), ctx.Body())
		if err != nil {
			return err
		}

		return ctx.JSON(output)
	}
}

func NewHandlers(services *Services, parser contract.HTTPRequestParser) HandlerMap {
	tracking := services.Tracking
	registry := services.ModelRegistry

	return HandlerMap{
		"GET_mlflow.MlflowService.getExperiment":                       handleQuery(parser, tracking.GetExperiment),
		"GET_mlflow.MlflowService.getExperimentByName":                 handleQuery(parser, tracking.GetExperimentByName),
		"POST_mlflow.MlflowService.createExperiment":                   handleBody(parser, tracking.CreateExperiment),
		"POST_mlflow.MlflowService.createRun":                          handleBody(parser, tracking.CreateRun),
		"POST_mlflow.MlflowService.updateRun":                          handleBody(parser, tracking.UpdateRun),
		"GET_mlflow.MlflowService.getRun":                              handleQuery(parser, tracking.GetRun),
		"POST_mlflow.MlflowService.logBatch":                           handleBody(parser, tracking.LogBatch),
		"POST_mlflow.MlflowService.logMetric":                          handleBody(parser, tracking.LogMetric),
		"POST_mlflow.MlflowService.logParam":                           handleBody(parser, tracking.LogParam),
		"POST_mlflow.ModelRegistryService.createRegisteredModel":       handleBody(parser, registry.CreateRegisteredModel),
		"GET_mlflow.ModelRegistryService.getRegisteredModel":           handleQuery(parser, registry.GetRegisteredModel),
		"POST_mlflow.ModelRegistryService.createModelVersion":          handleBody(parser, registry.CreateModelVersion),
		"GET_mlflow.ModelRegistryService.getModelVersion":              handleQuery(parser, registry.GetModelVersion),
		"GET_mlflow.ModelRegistryService.searchModelVersions":          handleQuery(parser, registry.SearchModelVersions),
		"POST_mlflow.ModelRegistryService.transitionModelVersionStage": handleBody(parser, registry.TransitionModelVersionStage),
		"GET_mlflow.ModelRegistryService.getModelVersionDownloadUri":   handleQuery(parser, registry.GetModelVersionDownloadURI),
		"GET_mlflow.artifacts.MlflowArtifactsService.listArtifacts":    handleQuery(parser, services.Artifacts.ListArtifacts),
		"GET_mlflow.artifacts.MlflowArtifactsService.downloadArtifact": downloadArtifactHandler(services.Artifacts),
		"PUT_mlflow.artifacts.MlflowArtifactsService.uploadArtifact":   uploadArtifactHandler(services.Artifacts),
	}
}

// RegisterRoutes mounts every service endpoint on app.
func RegisterRoutes(app *fiber.App, services *Services, parser contract.HTTPRequestParser) {
	handlers := NewHandlers(services, parser)

	for _, endpoint := range GetServiceEndpoints() {
		app.Add(endpoint.Method, endpoint.GetPattern(), handlers[endpoint.Name])
	}
}

package artifacts

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tidwall/gjson"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/contract"
)

// ProxyArtifactsPath is where a tracking server serves mlflow-artifacts URIs.
const ProxyArtifactsPath = "/api/2.0/mlflow-artifacts/artifacts"

// ProxyRepository talks to the artifact proxy of a tracking server.
type ProxyRepository struct {
	baseURL string
	root    string
	timeout time.Duration
}

// NewProxyRepository roots a repository at root (a path below the proxy) on the
// server reachable at serverURL.
func NewProxyRepository(serverURL, root string, timeout time.Duration) *ProxyRepository {
	return &ProxyRepository{
		baseURL: strings.TrimRight(serverURL, "/") + ProxyArtifactsPath,
		root:    strings.Trim(root, "/"),
		timeout: timeout,
	}
}

func (r *ProxyRepository) LogArtifact(ctx context.Context, localFile, artifactPath string) error {
	return logArtifact(ctx, r, localFile, artifactPath)
}

func (r *ProxyRepository) LogArtifacts(ctx context.Context, localDir, artifactPath string) error {
	return logArtifacts(ctx, r, localDir, artifactPath)
}

func (r *ProxyRepository) DownloadArtifacts(ctx context.Context, artifactPath, dstDir string) (string, error) {
	return downloadTree(ctx, r, artifactPath, dstDir)
}

func (r *ProxyRepository) remote(artifactPath string) string {
	return path.Join(r.root, artifactPath)
}

func (r *ProxyRepository) fileURL(artifactPath string) string {
	segments := strings.Split(r.remote(artifactPath), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	return r.baseURL + "/" + strings.Join(segments, "/")
}

func (r *ProxyRepository) ListArtifacts(ctx context.Context, artifactPath string) ([]contract.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	agent := fiber.Get(r.baseURL).
		QueryString(url.Values{"path": []string{r.remote(artifactPath)}}.Encode()).
		Timeout(r.timeout)

	body, err := send(agent)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts at %q: %w", r.remote(artifactPath), err)
	}

	files := make([]contract.FileInfo, 0)

	gjson.GetBytes(body, "files").ForEach(func(_, file gjson.Result) bool {
		files = append(files, contract.FileInfo{
			Path:     path.Join(artifactPath, path.Base(file.Get("path").String())),
			IsDir:    file.Get("is_dir").Bool(),
			FileSize: file.Get("file_size").Int(),
		})

		return true
	})

	return files, nil
}

func (r *ProxyRepository) downloadFile(ctx context.Context, remotePath, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := send(fiber.Get(r.fileURL(remotePath)).Timeout(r.timeout))
	if err != nil {
		return fmt.Errorf("failed to download %q: %w", remotePath, err)
	}

	if err := os.WriteFile(localPath, body, 0o644); err != nil {
		return fmt.Errorf("failed to write %q: %w", localPath, err)
	}

	return nil
}

func (r *ProxyRepository) uploadFile(ctx context.Context, localPath, remotePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read %q: %w", localPath, err)
	}

	agent := fiber.Put(r.fileURL(remotePath)).
		ContentType(fiber.MIMEOctetStream).
		Body(data).
		Timeout(r.timeout)

	if _, err := send(agent); err != nil {
		return fmt.Errorf("failed to upload %q: %w", remotePath, err)
	}

	return nil
}

// send executes the agent and turns transport failures and non-2xx answers
// into errors. Error payloads of the MLflow protocol become *contract.Error.
func send(agent *fiber.Agent) ([]byte, error) {
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if code < fiber.StatusOK || code >= fiber.StatusMultipleChoices {
		return nil, DecodeError(code, body)
	}

	return body, nil
}

// DecodeError converts an error response of the MLflow protocol.
func DecodeError(status int, body []byte) *contract.Error {
	parsed := gjson.ParseBytes(body)
	code := contract.ErrorCode(parsed.Get("error_code").String())
	message := parsed.Get("message").String()

	if code == "" {
		code = contract.ErrorCodeInternalError
		if status == fiber.StatusNotFound {
			code = contract.ErrorCodeEndpointNotFound
		}
	}

	if message == "" {
		message = fmt.Sprintf("status %d: %s", status, strings.TrimSpace(string(body)))
	}

	return contract.NewError(code, message)
}

package sql

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/contract"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/utils"
)

type PageToken struct {
	Offset int32 `json:"offset"`
}

func getOffset(pageToken string) (int, *contract.Error) {
	if pageToken != "" {
		var token PageToken
		if err := json.NewDecoder(
			base64.NewDecoder(
				base64.StdEncoding,
				strings.NewReader(pageToken),
			),
		).Decode(&token); err != nil {
			return 0, contract.NewErrorWith(
				contract.ErrorCodeInvalidParameterValue,
				fmt.Sprintf("invalid page_token: %q", pageToken),
				err,
			)
		}

		if token.Offset < 0 {
			return 0, contract.NewError(
				contract.ErrorCodeInvalidParameterValue,
				fmt.Sprintf("invalid page_token: %q", pageToken),
			)
		}

		return int(token.Offset), nil
	}

	return 0, nil
}

// A full page means there may be more results.
func mkNextPageToken(resultLength, maxResults, offset int) (*string, *contract.Error) {
	var nextPageToken *string

	if resultLength == maxResults {
		var token strings.Builder

		encoder := base64.NewEncoder(base64.StdEncoding, &token)
		if err := json.NewEncoder(encoder).Encode(PageToken{
			Offset: int32(offset + maxResults),
		}); err != nil {
			return nil, contract.NewErrorWith(
				contract.ErrorCodeInternalError,
				"error encoding 'nextPageToken' value",
				err,
			)
		}

		if err := encoder.Close(); err != nil {
			return nil, contract.NewErrorWith(
				contract.ErrorCodeInternalError,
				"error encoding 'nextPageToken' value",
				err,
			)
		}

		nextPageToken = utils.PtrTo(token.String())
	}

	return nextPageToken, nil
}

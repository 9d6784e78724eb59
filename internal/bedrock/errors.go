package bedrock

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"cardlens/internal/domain"
)

// mapInvokeError translates an InvokeModel failure into the domain error
// taxonomy. Classification looks at the smithy error code first and falls
// back to the HTTP status when the code is unrecognized.
func mapInvokeError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDeniedException":
			return fmt.Errorf("%w: %v", domain.ErrAccessDenied, err)
		case "UnrecognizedClientException", "InvalidSignatureException", "ExpiredTokenException":
			return fmt.Errorf("%w: %v", domain.ErrAuthentication, err)
		case "ThrottlingException", "TooManyRequestsException":
			return fmt.Errorf("%w: %v", domain.ErrThrottled, err)
		case "ModelTimeoutException":
			return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
		case "ServiceUnavailableException", "InternalServerException", "ModelNotReadyException":
			return fmt.Errorf("%w: %v", domain.ErrTransientService, err)
		}
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %v", domain.ErrAuthentication, err)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %v", domain.ErrAccessDenied, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", domain.ErrThrottled, err)
		}
	}

	return fmt.Errorf("%w: %v", domain.ErrTransientService, err)
}

package handlers

import (
	"translatorhub/internal/models"
	contextutils "translatorhub/internal/utils"
)

// errorPayload converts a rejected command into the body of an error message.
// Request failures carry their kind and user message; infrastructure errors use AppError JSON.
func errorPayload(err error) map[string]interface{} {
	if reqErr, ok := models.AsRequestError(err); ok {
		payload := map[string]interface{}{
			"code":    string(reqErr.Kind),
			"message": reqErr.UserMessage(),
		}
		if reqErr.StatusCode != 0 {
			payload["statusCode"] = reqErr.StatusCode
		}
		return payload
	}

	if appErr, ok := err.(*contextutils.AppError); ok {
		return appErr.ToJSON()
	}

	return contextutils.NewAppErrorWithCause(
		contextutils.ErrorCodeInternalError,
		contextutils.SeverityError,
		"Internal server error",
		"",
		err,
	).ToJSON()
}

package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// UnknownErrorMessage is shown when a failure carries neither a detail nor a transport message.
const UnknownErrorMessage = "알 수 없는 오류가 발생했습니다."

var (
	ErrTimeout           = errors.New("request timed out")
	ErrMalformedResponse = errors.New("malformed response")
	ErrInvalidBaseURL    = errors.New("invalid base URL")
)

// APIError is returned for every non-2xx response.
type APIError struct {
	StatusCode int

	// Detail is the human-readable `detail` field of the error body, if any.
	Detail string

	// Answer is a usable answer the backend still sent alongside the failure.
	Answer string

	Body string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("request failed with status code %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("request failed with status code %d", e.StatusCode)
}

type errorBody struct {
	Detail json.RawMessage `json:"detail"`
	Answer *string         `json:"answer"`
}

// FastAPI reports request validation failures as a list of these.
type validationIssue struct {
	Msg string        `json:"msg"`
	Loc []interface{} `json:"loc"`
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: string(body)}

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return apiErr
	}
	if parsed.Answer != nil {
		apiErr.Answer = *parsed.Answer
	}
	apiErr.Detail = decodeDetail(parsed.Detail)
	return apiErr
}

func decodeDetail(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var issues []validationIssue
	if err := json.Unmarshal(raw, &issues); err == nil {
		msgs := make([]string, 0, len(issues))
		for _, issue := range issues {
			if issue.Msg == "" {
				continue
			}
			msgs = append(msgs, issue.Msg)
		}
		return strings.Join(msgs, "; ")
	}

	return ""
}

// ErrorMessage derives the user-facing text for a failed request: the structured
// detail first, then the error's own message, then UnknownErrorMessage.
func ErrorMessage(err error) string {
	if err == nil {
		return UnknownErrorMessage
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return UnknownErrorMessage
}

// DegradedAnswer reports the answer carried by a failed response, if it is usable.
func DegradedAnswer(err error) (string, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Answer != "" {
		return apiErr.Answer, true
	}
	return "", false
}

package bdp

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/go-resty/resty/v2"
)

// extractedTextField is shortened in batch failure summaries because it can
// hold the full OCR text of a document.
const extractedTextField = "extractedText"

const extractedTextLimit = 50

// makeURL joins a base URL and a path with exactly one slash at the join
// point, regardless of trailing or leading slashes on either side.
func makeURL(base, extension string) string {
	base = strings.TrimSuffix(base, "/")
	if !strings.HasPrefix(extension, "/") {
		extension = "/" + extension
	}
	return base + extension
}

// makeOAuthURL derives the token endpoint from the authorization server URL.
func makeOAuthURL(authURL string) string {
	authURL = strings.TrimSuffix(authURL, "/")
	if strings.HasSuffix(authURL, oauthTokenPath) {
		return authURL
	}
	return makeURL(authURL, oauthTokenPath)
}

// LoadGroundTruth accepts either a path to a JSON file or an in-memory
// JSON-compatible value and returns the value to submit to the service.
func LoadGroundTruth(groundTruth any) (any, error) {
	switch v := groundTruth.(type) {
	case nil:
		return nil, ErrNilGroundTruth
	case string:
		content, err := os.ReadFile(v)
		if err != nil {
			return nil, fmt.Errorf("read ground truth file %s: %w", v, err)
		}
		var parsed any
		if err := json.Unmarshal(content, &parsed); err != nil {
			return nil, fmt.Errorf("parse ground truth file %s: %w", v, err)
		}
		return parsed, nil
	case json.RawMessage:
		var parsed any
		if err := json.Unmarshal(v, &parsed); err != nil {
			return nil, fmt.Errorf("parse ground truth: %w", err)
		}
		return parsed, nil
	case map[string]any:
		return v, nil
	default:
		return nil, ErrBadGroundTruth
	}
}

// DecodeJSON unmarshals a response body into T.
func DecodeJSON[T any](resp *resty.Response) (T, error) {
	var out T
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return out, fmt.Errorf("decode response body: %w", err)
	}
	return out, nil
}

func containsStatus(statuses []string, status string) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// truncateFailureBody shortens the extractedText field of a failure body so
// aggregate errors stay readable.
func truncateFailureBody(body string) string {
	var payload map[string]any
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return body
	}
	text, ok := payload[extractedTextField].(string)
	if !ok || len(text) <= extractedTextLimit {
		return body
	}
	payload[extractedTextField] = text[:extractedTextLimit] + "... truncated"
	shortened, err := json.Marshal(payload)
	if err != nil {
		return body
	}
	return string(shortened)
}

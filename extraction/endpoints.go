package extraction

import "fmt"

const (
	capabilitiesEndpoint        = "capabilities"
	clientEndpoint              = "clients"
	clientMappingEndpoint       = "clients/capabilityMapping"
	dataEndpoint                = "data"
	dataAsyncEndpoint           = "data/async"
	dataActivationAsyncEndpoint = "data/activation/async"
	documentEndpoint            = "document/jobs"
)

func dataIDEndpoint(id string) string {
	return fmt.Sprintf("data/%s", id)
}

func dataActivationIDEndpoint(id string) string {
	return fmt.Sprintf("data/activation/%s", id)
}

func documentIDEndpoint(documentID string) string {
	return fmt.Sprintf("document/jobs/%s", documentID)
}

func documentConfirmEndpoint(documentID string) string {
	return fmt.Sprintf("document/jobs/%s/confirm", documentID)
}

func documentRequestEndpoint(documentID string) string {
	return fmt.Sprintf("document/jobs/%s/request", documentID)
}

func documentPageEndpoint(documentID string, pageNumber int) string {
	return fmt.Sprintf("document/jobs/%s/pages/%d", documentID, pageNumber)
}

func documentPageTextEndpoint(documentID string, pageNumber int) string {
	return fmt.Sprintf("document/jobs/%s/pages/%d/text", documentID, pageNumber)
}

func documentPagesTextEndpoint(documentID string) string {
	return fmt.Sprintf("document/jobs/%s/pages/text", documentID)
}

func documentPageDimensionsEndpoint(documentID string, pageNumber int) string {
	return fmt.Sprintf("document/jobs/%s/pages/%d/dimensions", documentID, pageNumber)
}

func documentPagesDimensionsEndpoint(documentID string) string {
	return fmt.Sprintf("document/jobs/%s/pages/dimensions", documentID)
}

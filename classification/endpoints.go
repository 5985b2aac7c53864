package classification

import "fmt"

const (
	datasetsEndpoint    = "datasets"
	modelsEndpoint      = "models"
	deploymentsEndpoint = "deployments"
)

func datasetEndpoint(datasetID string) string {
	return fmt.Sprintf("datasets/%s", datasetID)
}

func datasetDocumentsEndpoint(datasetID string) string {
	return fmt.Sprintf("datasets/%s/documents", datasetID)
}

func datasetDocumentEndpoint(datasetID, documentID string) string {
	return fmt.Sprintf("datasets/%s/documents/%s", datasetID, documentID)
}

func classificationDocumentsEndpoint(modelName string, modelVersion int) string {
	return fmt.Sprintf("classification/models/%s/versions/%d/documents", modelName, modelVersion)
}

func classificationResultEndpoint(modelName string, modelVersion int, documentID string) string {
	return fmt.Sprintf("classification/models/%s/versions/%d/documents/%s", modelName, modelVersion, documentID)
}

func modelTrainingJobsEndpoint(modelName string) string {
	return fmt.Sprintf("models/%s/versions", modelName)
}

func trainedModelEndpoint(modelName string, modelVersion int) string {
	return fmt.Sprintf("models/%s/versions/%d", modelName, modelVersion)
}

func deploymentEndpoint(deploymentID string) string {
	return fmt.Sprintf("deployments/%s", deploymentID)
}

package classification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	bdp "github.com/SAP/business-document-processing"
)

type trainingJob struct {
	ModelName    string `json:"modelName"`
	ModelVersion int    `json:"modelVersion"`
}

// TrainModel triggers the training of a new model version from the
// documents of a dataset and blocks until the training finished. The service
// rejects the submission with 409 while another training job runs, in which
// case the submission is repeated after the configured long sleep. Training
// may take significant time depending on the size of the dataset.
func (c *Client) TrainModel(ctx context.Context, modelName, datasetID string) (map[string]any, error) {
	var job trainingJob
	for {
		resp, err := c.Post(ctx, modelTrainingJobsEndpoint(modelName), bdp.RequestOptions{
			JSON:           map[string]string{"datasetId": datasetID},
			SkipValidation: true,
			LogBefore:      fmt.Sprintf("Triggering training of the model %s from the dataset %s", modelName, datasetID),
		})
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() == http.StatusConflict {
			if err := c.wait(ctx); err != nil {
				return nil, err
			}
			continue
		}
		if err := c.ValidateResponse(resp); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(resp.Body(), &job); err != nil {
			return nil, fmt.Errorf("decode training job: %w", err)
		}
		break
	}

	poll, err := c.PollForURL(ctx, trainedModelEndpoint(job.ModelName, job.ModelVersion), bdp.PollOptions{
		WaitStatus:    http.StatusConflict,
		SleepInterval: c.Config().PollingLongSleep,
		LogBefore:     fmt.Sprintf("Triggered training of the model %s from the dataset %s, waiting for the training to complete", modelName, datasetID),
	})
	if err != nil {
		return nil, err
	}
	return bdp.DecodeJSON[map[string]any](poll)
}

// DeleteTrainedModel deletes one version of a trained model.
func (c *Client) DeleteTrainedModel(ctx context.Context, modelName string, modelVersion int) (map[string]any, error) {
	resp, err := c.Delete(ctx, trainedModelEndpoint(modelName, modelVersion), bdp.RequestOptions{
		LogBefore: fmt.Sprintf("Triggering deletion of the model %s with version %d", modelName, modelVersion),
		LogAfter:  fmt.Sprintf("Successfully deleted the model %s with version %d", modelName, modelVersion),
	})
	if err != nil {
		return nil, err
	}
	return bdp.DecodeJSON[map[string]any](resp)
}

// GetTrainedModelInfo returns the training status and accuracy data of one
// model version.
func (c *Client) GetTrainedModelInfo(ctx context.Context, modelName string, modelVersion int) (map[string]any, error) {
	resp, err := c.Get(ctx, trainedModelEndpoint(modelName, modelVersion), bdp.RequestOptions{
		LogBefore: fmt.Sprintf("Getting information about the model %s with version %d", modelName, modelVersion),
		LogAfter:  fmt.Sprintf("Successfully got the information about the model %s with version %d", modelName, modelVersion),
	})
	if err != nil {
		return nil, err
	}
	return bdp.DecodeJSON[map[string]any](resp)
}

// GetTrainedModelsInfo lists all trained models with their training status
// and accuracy data.
func (c *Client) GetTrainedModelsInfo(ctx context.Context) ([]map[string]any, error) {
	resp, err := c.Get(ctx, modelsEndpoint, bdp.RequestOptions{
		LogBefore: "Getting information about all trained models",
		LogAfter:  "Successfully got information about all trained models",
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Models []map[string]any `json:"models"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("decode models listing: %w", err)
	}
	return payload.Models, nil
}

// DeployModel deploys a trained model version for inference and blocks
// until the deployment finished. While the deployment capacity is exhausted
// the service answers 409 and the submission is repeated after the
// configured long sleep; a 409 reporting the model as already deployed is
// returned as an error instead.
func (c *Client) DeployModel(ctx context.Context, modelName string, modelVersion int) (map[string]any, error) {
	var deploymentID string
	for {
		resp, err := c.Post(ctx, deploymentsEndpoint, bdp.RequestOptions{
			JSON: map[string]any{
				"modelName":    modelName,
				"modelVersion": modelVersion,
			},
			SkipValidation: true,
			LogBefore:      fmt.Sprintf("Triggering the deployment of the model %s with version %d", modelName, modelVersion),
		})
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() == http.StatusConflict {
			if strings.Contains(resp.String(), "model is already deployed") {
				return nil, c.ValidateResponse(resp)
			}
			if err := c.wait(ctx); err != nil {
				return nil, err
			}
			continue
		}
		if err := c.ValidateResponse(resp); err != nil {
			return nil, err
		}
		deploymentID, err = decodeField(resp.Body(), "deploymentId")
		if err != nil {
			return nil, fmt.Errorf("decode deployment job: %w", err)
		}
		break
	}

	poll, err := c.PollForURL(ctx, deploymentEndpoint(deploymentID), bdp.PollOptions{
		WaitStatus:    http.StatusConflict,
		SleepInterval: c.Config().PollingLongSleep,
		LogBefore:     fmt.Sprintf("Successfully triggered the deployment of the model %s with version %d, waiting for the deployment completion", modelName, modelVersion),
	})
	if err != nil {
		return nil, err
	}
	return bdp.DecodeJSON[map[string]any](poll)
}

// GetDeployedModelsInfo lists all deployed model servings.
func (c *Client) GetDeployedModelsInfo(ctx context.Context) ([]map[string]any, error) {
	resp, err := c.Get(ctx, deploymentsEndpoint, bdp.RequestOptions{
		LogBefore: "Getting information about all deployed models",
		LogAfter:  "Successfully got information about all deployed models",
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Deployments []map[string]any `json:"deployments"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("decode deployments listing: %w", err)
	}
	return payload.Deployments, nil
}

// GetDeployedModelInfo returns the deployed model serving with the given
// deployment ID.
func (c *Client) GetDeployedModelInfo(ctx context.Context, deploymentID string) (map[string]any, error) {
	resp, err := c.Get(ctx, deploymentEndpoint(deploymentID), bdp.RequestOptions{
		LogBefore: fmt.Sprintf("Getting the deployment of the model with ID %s", deploymentID),
		LogAfter:  fmt.Sprintf("Successfully got information about the deployment of the model with ID %s", deploymentID),
	})
	if err != nil {
		return nil, err
	}
	return bdp.DecodeJSON[map[string]any](resp)
}

// FindDeployedModel returns the deployment of the given model name and
// version. It fails unless exactly one matching deployment exists.
func (c *Client) FindDeployedModel(ctx context.Context, modelName string, modelVersion int) (map[string]any, error) {
	deployments, err := c.GetDeployedModelsInfo(ctx)
	if err != nil {
		return nil, err
	}

	var matches []map[string]any
	for _, deployment := range deployments {
		version, ok := deployment["modelVersion"].(float64)
		if deployment["modelName"] == modelName && ok && int(version) == modelVersion {
			matches = append(matches, deployment)
		}
	}
	if len(matches) != 1 {
		return nil, fmt.Errorf("model with name %s and version %d does not exist, or more than one deployment exists for the given name and version", modelName, modelVersion)
	}
	logger := c.Logger()
	logger.Info().
		Str("model", modelName).
		Int("version", modelVersion).
		Msg("Successfully got information about the model deployment")
	return matches[0], nil
}

// UndeployModel removes a model deployment and blocks until it is gone. The
// removal is complete once the deployment endpoint answers 404.
func (c *Client) UndeployModel(ctx context.Context, deploymentID string) error {
	_, err := c.Delete(ctx, deploymentEndpoint(deploymentID), bdp.RequestOptions{
		LogBefore: fmt.Sprintf("Triggering the removal of the model deployment with ID %s", deploymentID),
		LogAfter:  fmt.Sprintf("Successfully triggered the removal of the model deployment with ID %s, waiting for the removal completion", deploymentID),
	})
	if err != nil {
		return err
	}

	_, err = c.PollForURL(ctx, deploymentEndpoint(deploymentID), bdp.PollOptions{
		SuccessStatus:       http.StatusNotFound,
		WaitStatus:          http.StatusOK,
		SkipJSONStatusCheck: true,
	})
	return err
}

// UndeployModelVersion resolves the deployment of the given model name and
// version and removes it.
func (c *Client) UndeployModelVersion(ctx context.Context, modelName string, modelVersion int) error {
	deployment, err := c.FindDeployedModel(ctx, modelName, modelVersion)
	if err != nil {
		return err
	}
	deploymentID, ok := deployment["deploymentId"].(string)
	if !ok {
		return fmt.Errorf("deployment of model %s with version %d has no deployment ID", modelName, modelVersion)
	}
	return c.UndeployModel(ctx, deploymentID)
}

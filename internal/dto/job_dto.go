package dto

import "github.com/google/uuid"

// PublishGenerateCodeframeMessage is the queue payload that hands a queued
// run to the pipeline worker.
type PublishGenerateCodeframeMessage struct {
	GenerationId uuid.UUID `json:"generation_id"`
}

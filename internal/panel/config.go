package panel

import (
	"context"

	"github.com/Yates-Labs/permitdesk/internal/backend"
)

const (
	ChunkUpdatedMessage      = "청킹 설정이 업데이트되었습니다."
	SimilarityUpdatedMessage = "유사도 설정이 업데이트되었습니다."
	WeightUpdatedMessage     = "가중치 설정이 업데이트되었습니다."
)

// ConfigBackend updates retrieval parameters on the server.
type ConfigBackend interface {
	UpdateChunkConfig(ctx context.Context, cfg backend.ChunkConfig) error
	UpdateSimilarityConfig(ctx context.Context, cfg backend.SimilarityConfig) error
	UpdateWeightConfig(ctx context.Context, cfg backend.WeightConfig) error
}

// ConfigPanel has one independent form per parameter group. A succeeded form
// holds the confirmation message.
type ConfigPanel struct {
	backend ConfigBackend

	Chunk      Form[string]
	Similarity Form[string]
	Weight     Form[string]
}

func NewConfigPanel(b ConfigBackend) *ConfigPanel {
	return &ConfigPanel{backend: b}
}

// SubmitChunk validates cfg locally and sends it. Invalid input never reaches the backend.
func (p *ConfigPanel) SubmitChunk(ctx context.Context, cfg backend.ChunkConfig) (string, error) {
	return submit(ctx, &p.Chunk, func(ctx context.Context) (string, error) {
		if err := Validate(cfg); err != nil {
			return "", err
		}
		if err := p.backend.UpdateChunkConfig(ctx, cfg); err != nil {
			return "", err
		}
		return ChunkUpdatedMessage, nil
	})
}

func (p *ConfigPanel) SubmitSimilarity(ctx context.Context, cfg backend.SimilarityConfig) (string, error) {
	return submit(ctx, &p.Similarity, func(ctx context.Context) (string, error) {
		if err := Validate(cfg); err != nil {
			return "", err
		}
		if err := p.backend.UpdateSimilarityConfig(ctx, cfg); err != nil {
			return "", err
		}
		return SimilarityUpdatedMessage, nil
	})
}

func (p *ConfigPanel) SubmitWeight(ctx context.Context, cfg backend.WeightConfig) (string, error) {
	return submit(ctx, &p.Weight, func(ctx context.Context) (string, error) {
		if err := Validate(cfg); err != nil {
			return "", err
		}
		if err := p.backend.UpdateWeightConfig(ctx, cfg); err != nil {
			return "", err
		}
		return WeightUpdatedMessage, nil
	})
}

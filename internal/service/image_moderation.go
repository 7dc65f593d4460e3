package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/muni_commerce/internal/config"
	"github.com/GTDGit/muni_commerce/internal/utils"
)

// moderationAPI is the subset of *rekognition.Client used here.
type moderationAPI interface {
	DetectModerationLabels(ctx context.Context, params *rekognition.DetectModerationLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectModerationLabelsOutput, error)
}

// RekognitionModerator rejects images for which AWS Rekognition reports
// moderation labels above the configured confidence.
type RekognitionModerator struct {
	client        moderationAPI
	minConfidence float32
}

// NewRekognitionModerator loads AWS configuration for the moderation region.
func NewRekognitionModerator(ctx context.Context, mod *config.ModerationConfig, s3cfg *config.S3Config) (*RekognitionModerator, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(mod.Region)}
	if s3cfg != nil && s3cfg.AccessKeyID != "" && s3cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s3cfg.AccessKeyID, s3cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newRekognitionModerator(rekognition.NewFromConfig(awsCfg), mod.MinConfidence), nil
}

func newRekognitionModerator(client moderationAPI, minConfidence float64) *RekognitionModerator {
	return &RekognitionModerator{client: client, minConfidence: float32(minConfidence)}
}

// Check calls DetectModerationLabels on the raw image bytes.
func (m *RekognitionModerator) Check(ctx context.Context, data []byte) error {
	out, err := m.client.DetectModerationLabels(ctx, &rekognition.DetectModerationLabelsInput{
		Image:         &types.Image{Bytes: data},
		MinConfidence: aws.Float32(m.minConfidence),
	})
	if err != nil {
		log.Error().Err(err).Msg("AWS DetectModerationLabels failed")
		return fmt.Errorf("moderation: %w", err)
	}

	var names []string
	for _, l := range out.ModerationLabels {
		if aws.ToFloat32(l.Confidence) >= m.minConfidence {
			names = append(names, aws.ToString(l.Name))
		}
	}
	if len(names) > 0 {
		log.Warn().Strs("labels", names).Msg("Image rejected by moderation")
		return fmt.Errorf("%w: %s", utils.ErrImageRejected, strings.Join(names, ", "))
	}
	return nil
}

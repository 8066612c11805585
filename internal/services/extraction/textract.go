package extraction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/common"
	"github.com/ternarybob/probo/internal/interfaces"
)

// TextractProvider detects text via the AWS Textract synchronous API. The
// sync path only accepts single images, so PDFs are reported as unsupported
// and the caller converts pages first.
type TextractProvider struct {
	client  *textract.Client
	timeout time.Duration
	logger  arbor.ILogger
}

func NewTextractProvider(ctx context.Context, cfg common.OCRConfig, logger arbor.ILogger) (*TextractProvider, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	logger.Debug().
		Str("region", awsCfg.Region).
		Dur("timeout", timeout).
		Msg("Textract OCR provider initialized")

	return &TextractProvider{
		client:  textract.NewFromConfig(awsCfg),
		timeout: timeout,
		logger:  logger,
	}, nil
}

// DetectBlocks runs synchronous text detection and returns LINE blocks with
// their confidence and geometry.
func (p *TextractProvider) DetectBlocks(ctx context.Context, data []byte) ([]interfaces.OCRBlock, error) {
	if bytes.HasPrefix(data, []byte("%PDF")) {
		return nil, interfaces.ErrUnsupportedFormat
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	out, err := p.client.DetectDocumentText(timeoutCtx, &textract.DetectDocumentTextInput{
		Document: &types.Document{Bytes: data},
	})
	if err != nil {
		var unsupported *types.UnsupportedDocumentException
		if errors.As(err, &unsupported) {
			return nil, interfaces.ErrUnsupportedFormat
		}
		return nil, fmt.Errorf("Textract detection failed: %w", err)
	}

	blocks := make([]interfaces.OCRBlock, 0, len(out.Blocks))
	for _, b := range out.Blocks {
		if b.BlockType != types.BlockTypeLine {
			continue
		}
		block := interfaces.OCRBlock{
			Text:       aws.ToString(b.Text),
			Confidence: float64(aws.ToFloat32(b.Confidence)),
			Page:       int(aws.ToInt32(b.Page)),
		}
		if block.Page == 0 {
			block.Page = 1
		}
		if b.Geometry != nil && b.Geometry.BoundingBox != nil {
			box := b.Geometry.BoundingBox
			block.Top = float64(box.Top)
			block.Left = float64(box.Left)
			block.Width = float64(box.Width)
			block.Height = float64(box.Height)
		}
		blocks = append(blocks, block)
	}

	p.logger.Debug().
		Int("blocks", len(blocks)).
		Msg("Textract detection complete")
	return blocks, nil
}

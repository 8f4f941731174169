package engine

import (
	"context"
	"fmt"
	"os"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Cloud engine rasterization floor. Matches the 3x render matrix the
// review workflow has always used for Vision input (216 DPI).
const visionMinDPI = 216

// VisionInvoker implements Invoker using Google Cloud Vision document text
// detection. Vision scores every word and paragraph, so raw responses carry
// full line and word confidence data.
type VisionInvoker struct {
	client *vision.ImageAnnotatorClient
}

// NewVisionInvoker creates a cloud engine invoker. The Vision client is not
// constructed until CheckReady so that a credential problem surfaces as the
// batch-level fatal precondition it is.
func NewVisionInvoker() *VisionInvoker {
	return &VisionInvoker{}
}

// NewVisionInvokerWithClient creates a cloud invoker with an explicit client (for testing).
func NewVisionInvokerWithClient(client *vision.ImageAnnotatorClient) *VisionInvoker {
	return &VisionInvoker{client: client}
}

func (v *VisionInvoker) Kind() Kind { return Cloud }

func (v *VisionInvoker) MinDPI() int { return visionMinDPI }

// CheckReady validates standing credentials by constructing the Vision
// client from the environment. Expects GOOGLE_APPLICATION_CREDENTIALS path
// or GOOGLE_CREDENTIALS inline JSON.
func (v *VisionInvoker) CheckReady(ctx context.Context) error {
	const op = "CheckReady"

	if v.client != nil {
		return nil
	}

	var client *vision.ImageAnnotatorClient
	var err error

	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return NewEngineError(op, ErrAuthFailed, "failed to create client with GOOGLE_CREDENTIALS")
		}
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(credFile))
		if err != nil {
			return NewEngineError(op, ErrAuthFailed, "failed to create client with GOOGLE_APPLICATION_CREDENTIALS")
		}
	} else {
		// Try default credentials as fallback
		client, err = vision.NewImageAnnotatorClient(ctx)
		if err != nil {
			return NewEngineError(op, ErrMissingCredentials, "no credentials found in environment")
		}
	}

	v.client = client
	return nil
}

// Invoke sends one page image to the Vision API and maps the annotation
// into the common raw-response shape. Confidences arrive from the API as
// 0-1 fractions and are converted to percentages here, at the engine
// boundary; downstream normalization copies them verbatim.
func (v *VisionInvoker) Invoke(ctx context.Context, imagePath string) (*RawResponse, error) {
	const op = "Invoke"

	if v.client == nil {
		return nil, NewEngineError(op, ErrMissingCredentials, "CheckReady was not run")
	}

	imageBytes, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, NewEngineError(op, ErrPageFailed,
			fmt.Sprintf("failed to read page image %s: %v", imagePath, err))
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: imageBytes},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}

	resp, err := v.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, classifyVisionError(op, err)
	}

	if len(resp.Responses) == 0 {
		return nil, NewEngineError(op, ErrPageFailed, "empty response from Vision API")
	}
	annotation := resp.Responses[0]
	if annotation.Error != nil {
		return nil, NewEngineError(op, ErrPageFailed,
			fmt.Sprintf("Vision API error: %s", annotation.Error.Message))
	}

	return mapAnnotation(annotation), nil
}

// classifyVisionError sorts a Vision RPC error into the engine taxonomy.
func classifyVisionError(op string, err error) error {
	switch status.Code(err) {
	case codes.ResourceExhausted, codes.Unavailable:
		return NewEngineError(op, ErrThrottled, err.Error())
	case codes.Unauthenticated, codes.PermissionDenied:
		return NewEngineError(op, ErrAuthFailed, err.Error())
	}
	return NewEngineError(op, ErrPageFailed, fmt.Sprintf("Vision API call failed: %v", err))
}

// mapAnnotation flattens a Vision full-text annotation into ordered lines
// and words. Vision's paragraph is the closest structural match to a line
// of handwritten text.
func mapAnnotation(annotation *visionpb.AnnotateImageResponse) *RawResponse {
	raw := &RawResponse{Kind: Cloud}

	fta := annotation.FullTextAnnotation
	if fta == nil {
		// Blank page: a valid response with nothing recognized.
		return raw
	}
	raw.Text = strings.TrimRight(fta.Text, "\n")

	for _, page := range fta.Pages {
		for _, block := range page.Blocks {
			for _, paragraph := range block.Paragraphs {
				var lineText strings.Builder
				for _, word := range paragraph.Words {
					wordText := symbolsText(word)
					if wordText == "" {
						continue
					}
					if lineText.Len() > 0 {
						lineText.WriteByte(' ')
					}
					lineText.WriteString(wordText)
					raw.Words = append(raw.Words, RawSpan{
						Text:       wordText,
						Confidence: Pct(float64(word.Confidence) * 100),
					})
				}
				if lineText.Len() > 0 {
					raw.Lines = append(raw.Lines, RawSpan{
						Text:       lineText.String(),
						Confidence: Pct(float64(paragraph.Confidence) * 100),
					})
				}
			}
		}
	}

	return raw
}

func symbolsText(word *visionpb.Word) string {
	var b strings.Builder
	for _, symbol := range word.Symbols {
		b.WriteString(symbol.Text)
	}
	return b.String()
}

// Close closes the underlying Vision client.
func (v *VisionInvoker) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}

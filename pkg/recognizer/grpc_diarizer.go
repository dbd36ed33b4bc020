package recognizer

import (
	"context"
	"fmt"
	"io"

	recognizerv1 "github.com/axonote/pipeline/proto/recognizerv1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// GRPCDiarizerClient is a Diarizer implementation backed by an
// out-of-process recognizer over gRPC.
type GRPCDiarizerClient struct {
	conn   *grpc.ClientConn
	client recognizerv1.DiarizationServiceClient
}

// NewGRPCDiarizerClient dials addr and returns a ready-to-use Diarizer client.
func NewGRPCDiarizerClient(addr string) (*GRPCDiarizerClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("recognizer: dial diarization backend %s: %w", addr, err)
	}
	return &GRPCDiarizerClient{conn: conn, client: recognizerv1.NewDiarizationServiceClient(conn)}, nil
}

// Diarize streams progress from the backend and returns the final speaker
// assignment.
func (c *GRPCDiarizerClient) Diarize(ctx context.Context, req DiarizeRequest, progress ProgressFunc) (*DiarizationResult, error) {
	stream, err := c.client.Diarize(ctx, &recognizerv1.DiarizeRequest{
		JobId:                req.JobID,
		AudioUrl:             req.AudioURL,
		ExpectedSpeakerCount: int32(req.ExpectedSpeakerCount),
	})
	if err != nil {
		return nil, fmt.Errorf("recognizer: start diarize stream: %w", err)
	}

	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			return nil, fmt.Errorf("recognizer: diarization stream closed without a result")
		}
		if err != nil {
			return nil, fmt.Errorf("recognizer: diarization stream: %w", err)
		}

		switch content := resp.Content.(type) {
		case *recognizerv1.DiarizeResponse_Progress:
			if progress != nil {
				progress(int(content.Progress.ProgressPct), "diarizing")
			}
		case *recognizerv1.DiarizeResponse_Result:
			return fromProtoDiarizeResult(content.Result), nil
		case *recognizerv1.DiarizeResponse_Error:
			return nil, fmt.Errorf("recognizer: diarization backend error (%s): %s", content.Error.Code, content.Error.Message)
		}
	}
}

// Close releases the underlying connection.
func (c *GRPCDiarizerClient) Close() error {
	return c.conn.Close()
}

func fromProtoDiarizeResult(r *recognizerv1.DiarizeResult) *DiarizationResult {
	segments := make([]SpeakerSegment, 0, len(r.Segments))
	for _, s := range r.Segments {
		segments = append(segments, SpeakerSegment{
			StartSeconds: s.StartSeconds,
			EndSeconds:   s.EndSeconds,
			SpeakerID:    s.SpeakerId,
			Confidence:   s.Confidence,
		})
	}
	return &DiarizationResult{
		SpeakerCount:           int(r.SpeakerCount),
		Segments:               segments,
		SeparationQualityScore: averageOf(r.SeparationQualityScore),
	}
}

func averageOf(m map[string]float64) float64 {
	if len(m) == 0 {
		return 0
	}
	var sum float64
	for _, v := range m {
		sum += v
	}
	return sum / float64(len(m))
}

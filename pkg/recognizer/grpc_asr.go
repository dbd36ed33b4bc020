package recognizer

import (
	"context"
	"fmt"
	"io"

	recognizerv1 "github.com/axonote/pipeline/proto/recognizerv1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// GRPCASRClient is an ASR implementation backed by an out-of-process
// recognizer over gRPC.
type GRPCASRClient struct {
	conn   *grpc.ClientConn
	client recognizerv1.ASRServiceClient
}

// NewGRPCASRClient dials addr and returns a ready-to-use ASR client. The
// connection is plaintext; recognizer backends are expected to run inside
// the same trust boundary (sidecar or private network), matching how the
// rest of this service's internal gRPC peers are dialed.
func NewGRPCASRClient(addr string) (*GRPCASRClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("recognizer: dial ASR backend %s: %w", addr, err)
	}
	return &GRPCASRClient{conn: conn, client: recognizerv1.NewASRServiceClient(conn)}, nil
}

// Transcribe streams segments from the backend, forwarding each as a
// progress update, and returns the final aggregated result.
func (c *GRPCASRClient) Transcribe(ctx context.Context, req TranscribeRequest, progress ProgressFunc) (*TranscriptResult, error) {
	stream, err := c.client.Transcribe(ctx, &recognizerv1.TranscribeRequest{
		JobId:        req.JobID,
		AudioUrl:     req.AudioURL,
		Preset:       string(req.Preset),
		LanguageHint: req.LanguageHint,
	})
	if err != nil {
		return nil, fmt.Errorf("recognizer: start transcribe stream: %w", err)
	}

	var segmentCount int
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			return nil, fmt.Errorf("recognizer: ASR stream closed without a result")
		}
		if err != nil {
			return nil, fmt.Errorf("recognizer: ASR stream: %w", err)
		}

		switch content := resp.Content.(type) {
		case *recognizerv1.TranscribeResponse_Segment:
			segmentCount++
			if progress != nil {
				progress(0, fmt.Sprintf("received segment %d", segmentCount))
			}
		case *recognizerv1.TranscribeResponse_Result:
			return fromProtoTranscribeResult(content.Result), nil
		case *recognizerv1.TranscribeResponse_Error:
			return nil, fmt.Errorf("recognizer: ASR backend error (%s): %s", content.Error.Code, content.Error.Message)
		}
	}
}

// Close releases the underlying connection.
func (c *GRPCASRClient) Close() error {
	return c.conn.Close()
}

func fromProtoTranscribeResult(r *recognizerv1.TranscribeResult) *TranscriptResult {
	segments := make([]TranscriptSegment, 0, len(r.Segments))
	for _, s := range r.Segments {
		segments = append(segments, TranscriptSegment{
			StartSeconds: s.StartSeconds,
			EndSeconds:   s.EndSeconds,
			Text:         s.Text,
			Confidence:   s.Confidence,
		})
	}
	return &TranscriptResult{
		FullText:             r.FullText,
		Segments:             segments,
		DetectedLanguage:     r.DetectedLanguage,
		GlobalConfidence:     r.GlobalConfidence,
		AudioDurationSeconds: r.AudioDurationSeconds,
		ModelIdentifier:      r.ModelIdentifier,
	}
}

package recognizer

import (
	"context"
	"fmt"
	"io"

	recognizerv1 "github.com/axonote/pipeline/proto/recognizerv1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// GRPCLLMAnalyzerClient is an LLMAnalyzer implementation backed by an
// out-of-process recognizer over gRPC.
type GRPCLLMAnalyzerClient struct {
	conn   *grpc.ClientConn
	client recognizerv1.LLMAnalyzerServiceClient
}

// NewGRPCLLMAnalyzerClient dials addr and returns a ready-to-use
// LLMAnalyzer client.
func NewGRPCLLMAnalyzerClient(addr string) (*GRPCLLMAnalyzerClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("recognizer: dial LLM analyzer backend %s: %w", addr, err)
	}
	return &GRPCLLMAnalyzerClient{conn: conn, client: recognizerv1.NewLLMAnalyzerServiceClient(conn)}, nil
}

// Analyze streams the backend's single terminal result.
func (c *GRPCLLMAnalyzerClient) Analyze(ctx context.Context, req AnalyzeRequest, progress ProgressFunc) (*AnalysisResult, error) {
	stream, err := c.client.Analyze(ctx, &recognizerv1.AnalyzeRequest{
		JobId:         req.JobID,
		CorrectedText: req.CorrectedText,
		Subject:       req.Subject,
	})
	if err != nil {
		return nil, fmt.Errorf("recognizer: start analyze stream: %w", err)
	}

	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			return nil, fmt.Errorf("recognizer: analysis stream closed without a result")
		}
		if err != nil {
			return nil, fmt.Errorf("recognizer: analysis stream: %w", err)
		}

		switch content := resp.Content.(type) {
		case *recognizerv1.AnalyzeResponse_Result:
			if progress != nil {
				progress(100, "analysis complete")
			}
			return fromProtoAnalyzeResult(content.Result), nil
		case *recognizerv1.AnalyzeResponse_Error:
			return nil, fmt.Errorf("recognizer: LLM analyzer backend error (%s): %s", content.Error.Code, content.Error.Message)
		}
	}
}

// Close releases the underlying connection.
func (c *GRPCLLMAnalyzerClient) Close() error {
	return c.conn.Close()
}

func fromProtoAnalyzeResult(r *recognizerv1.AnalyzeResult) *AnalysisResult {
	terminology := make([]map[string]interface{}, 0, len(r.TerminologyMedica))
	for _, t := range r.TerminologyMedica {
		terminology = append(terminology, map[string]interface{}{"term": t})
	}
	return &AnalysisResult{
		Summary:           r.Summary,
		KeyConcepts:       r.KeyConcepts,
		TerminologyMedica: terminology,
		Confidence:        r.Confidence,
		Coherence:         r.Coherence,
		Completeness:      r.Completeness,
		MedicalRelevance:  r.MedicalRelevance,
	}
}

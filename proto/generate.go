// Package proto holds the wire contract for out-of-process recognizer
// backends (ASR, diarization, LLM analysis). Run `go generate ./proto`
// before building to produce the recognizerv1 Go bindings.
package proto

//go:generate protoc --go_out=. --go_opt=module=github.com/axonote/pipeline --go-grpc_out=. --go-grpc_opt=module=github.com/axonote/pipeline recognizer.proto

//go:build onnx

package main

import (
	"github.com/konuslabs/recall/config"
	"github.com/konuslabs/recall/memory"
	"github.com/konuslabs/recall/memory/encoder/onnx"
)

func newONNXEncoder(cfg *config.Config) (memory.Encoder, error) {
	return onnx.New(onnx.Config{
		ModelPath:     cfg.Memory.ModelPath,
		TokenizerPath: cfg.Memory.TokenizerPath,
	})
}

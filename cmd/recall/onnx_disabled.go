//go:build !onnx

package main

import (
	"fmt"

	"github.com/konuslabs/recall/config"
	"github.com/konuslabs/recall/memory"
)

func newONNXEncoder(cfg *config.Config) (memory.Encoder, error) {
	return nil, fmt.Errorf("onnx encoder requested but binary built without the onnx tag")
}

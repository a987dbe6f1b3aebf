package main

import (
	"bytes"
	"context"

	"efunc/emulator"
)

func main() {
	srv := emulator.NewServer()
	srv.RegisterFunction("demo", "echo", func(ctx context.Context, payload []byte) ([]byte, error) {
		return payload, nil
	})
	srv.RegisterFunction("demo", "upper", func(ctx context.Context, payload []byte) ([]byte, error) {
		return bytes.ToUpper(payload), nil
	})
	if err := srv.Start(":8081"); err != nil {
		panic(err)
	}
}

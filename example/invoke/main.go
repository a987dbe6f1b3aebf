package main

import (
	"context"
	"fmt"
	"time"

	"efunc"
)

func main() {
	client, err := efunc.NewClient("localhost:8081", efunc.ClientWithInsecure())
	if err != nil {
		panic(err)
	}
	defer client.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	fid, err := client.Map(ctx, "demo", "upper")
	if err != nil {
		panic(err)
	}
	handle, err := client.PutInput(ctx, fid, []byte("hello, world"))
	if err != nil {
		panic(err)
	}
	res, err := client.GetOutput(ctx, handle, time.Second*5)
	if err != nil {
		panic(err)
	}
	fmt.Println(string(res.Payload))
}

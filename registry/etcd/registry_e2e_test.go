//go:build e2e

package etcd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clientv3 "go.etcd.io/etcd/client/v3"

	"efunc/registry"
)

func TestRegistry_e2e(t *testing.T) {
	client, err := clientv3.New(clientv3.Config{
		Endpoints: []string{"localhost:2379"},
	})
	require.NoError(t, err)
	r, err := NewRegistry(client)
	require.NoError(t, err)
	defer func() {
		_ = r.Close()
	}()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	ins := registry.ServiceInstance{
		Name:    "control-plane",
		Address: "127.0.0.1:8081",
	}
	require.NoError(t, r.Register(ctx, ins))

	instances, err := r.ListServices(ctx, "control-plane")
	require.NoError(t, err)
	require.Len(t, instances, 1)
	assert.Equal(t, ins.Address, instances[0].Address)

	events, err := r.Subscribe("control-plane")
	require.NoError(t, err)
	require.NoError(t, r.Unregister(ctx, ins))
	select {
	case evt := <-events:
		assert.Equal(t, registry.EventTypeDelete, evt.Type)
	case <-ctx.Done():
		t.Fatal("no event before deadline")
	}

	instances, err = r.ListServices(ctx, "control-plane")
	require.NoError(t, err)
	assert.Empty(t, instances)
}

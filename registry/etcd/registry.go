package etcd

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"

	"efunc/registry"
)

var typesMap = map[mvccpb.Event_EventType]registry.EventType{
	mvccpb.PUT:    registry.EventTypeAdd,
	mvccpb.DELETE: registry.EventTypeDelete,
}

var _ registry.Registry = (*Registry)(nil)

type Registry struct {
	client      *clientv3.Client
	sess        *concurrency.Session
	mutex       sync.RWMutex
	watchCancel []func()
}

func NewRegistry(c *clientv3.Client) (*Registry, error) {
	// Session default TTL is 60s; instances disappear automatically once a
	// control plane stops renewing its lease.
	sess, err := concurrency.NewSession(c)
	if err != nil {
		return nil, err
	}
	return &Registry{
		sess:   sess,
		client: c,
	}, nil
}

func (r *Registry) Register(ctx context.Context, ins registry.ServiceInstance) error {
	val, err := json.Marshal(ins)
	if err != nil {
		return err
	}
	_, err = r.client.Put(ctx, r.instanceKey(ins),
		string(val), clientv3.WithLease(r.sess.Lease()))
	return err
}

func (r *Registry) Unregister(ctx context.Context, ins registry.ServiceInstance) error {
	_, err := r.client.Delete(ctx, r.instanceKey(ins))
	return err
}

func (r *Registry) ListServices(ctx context.Context, serviceName string) ([]registry.ServiceInstance, error) {
	resp, err := r.client.Get(ctx, r.serviceKey(serviceName), clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}
	res := make([]registry.ServiceInstance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var si registry.ServiceInstance
		err = json.Unmarshal(kv.Value, &si)
		if err != nil {
			return nil, err
		}
		res = append(res, si)
	}
	return res, nil
}

func (r *Registry) Subscribe(serviceName string) (<-chan registry.Event, error) {
	ctx, cancel := context.WithCancel(context.Background())
	ctx = clientv3.WithRequireLeader(ctx)
	r.mutex.Lock()
	r.watchCancel = append(r.watchCancel, cancel)
	r.mutex.Unlock()
	watchCh := r.client.Watch(ctx, r.serviceKey(serviceName), clientv3.WithPrefix())
	res := make(chan registry.Event)
	go func() {
		for {
			select {
			case resp := <-watchCh:
				if resp.Canceled {
					close(res)
					return
				}
				if resp.Err() != nil {
					continue
				}
				for _, event := range resp.Events {
					var ins registry.ServiceInstance
					err := json.Unmarshal(event.Kv.Value, &ins)
					if err != nil {
						// a broken value still signals that the service
						// list changed, send an empty event
						select {
						case res <- registry.Event{}:
						case <-ctx.Done():
							close(res)
							return
						}
						continue
					}
					select {
					case res <- registry.Event{
						Type:     typesMap[event.Type],
						Instance: ins,
					}:
					case <-ctx.Done():
						close(res)
						return
					}
				}
			case <-ctx.Done():
				close(res)
				return
			}
		}
	}()
	return res, nil
}

func (r *Registry) Close() error {
	r.mutex.Lock()
	for _, cancel := range r.watchCancel {
		cancel()
	}
	r.mutex.Unlock()
	// the clientv3.Client came from the caller and may be shared, only the
	// session belongs to us
	return r.sess.Close()
}

func (r *Registry) instanceKey(ins registry.ServiceInstance) string {
	return fmt.Sprintf("/efunc/%s/%s", ins.Name, ins.Address)
}

func (r *Registry) serviceKey(serviceName string) string {
	return fmt.Sprintf("/efunc/%s", serviceName)
}

package directory

import "context"

// Store persists directory listings. List returns matches in rating order.
type Store interface {
	Create(ctx context.Context, p *ServiceProvider) error
	Get(ctx context.Context, id string) (ServiceProvider, error)
	List(ctx context.Context, q Query) ([]ServiceProvider, error)
	Count(ctx context.Context) (int, error)
}

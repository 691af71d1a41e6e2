package patient

import (
	"context"

	"github.com/clinicdesk/clinic/pkg/pagination"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id int64) (*Patient, error)
	GetByCode(ctx context.Context, code string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context, page pagination.Params) ([]*Patient, int, error)
	Search(ctx context.Context, keyword string, limit int) ([]*Patient, error)
	Count(ctx context.Context) (int, error)

	// LatestCode returns the code of the most recently inserted patient, or
	// "" when there are none.
	LatestCode(ctx context.Context) (string, error)
}

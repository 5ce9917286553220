package handlers

import (
	"context"
	"io"

	"github.com/blubywaff/ftag/internal/models"
	"github.com/blubywaff/ftag/internal/service"
)

// ResourceServiceInterface defines methods required from the resource service.
type ResourceServiceInterface interface {
	// AddFile stores an uploaded file as a new resource.
	AddFile(ctx context.Context, r io.Reader, tags models.TagSet) (*models.Resource, error)

	// GetResource retrieves a resource descriptor.
	GetResource(ctx context.Context, id string) (*models.Resource, error)

	// GetFile retrieves a resource together with its contents.
	GetFile(ctx context.Context, id string) (*service.File, error)

	// ChangeTags attaches add and detaches del.
	ChangeTags(ctx context.Context, id string, add, del models.TagSet) (*models.Resource, error)

	// Query returns the resource at a 1-based position of the matching list.
	//
	// Parameters:
	//   - ctx: Context for the operation
	//   - clientID: The calling client, whose default excludes apply
	//   - include: Tags every result must carry
	//   - exclude: Tags no result may carry
	//   - number: The 1-based position to return
	//
	// Returns:
	//   - The resource with its position and the size of the list
	//   - An error if the position is outside the list
	Query(ctx context.Context, clientID string, include, exclude models.TagSet, number int) (*models.QueryResult, error)
}

package reading

import "context"

// Oracle port (interface untuk interpretasi foto telapak tangan)
type Oracle interface {
	Read(ctx context.Context, p Profile, image Image) (*PalmAnalysis, error)
	Provider() string
	Model() string
}

// Image is the photo handed to the oracle.
type Image struct {
	Data     []byte
	MIMEType string
}

// Repository port (interface untuk persistence history)
type Repository interface {
	Save(ctx context.Context, r *Reading) error
	Get(ctx context.Context, id ReadingID) (*Reading, error)
	Paginate(ctx context.Context, page, pageSize int) (PaginatedResult, error)
	Delete(ctx context.Context, id ReadingID) error
	Clear(ctx context.Context) (int64, error)
}

// ImageStore port (interface untuk penyimpanan foto)
type ImageStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, string, error)
	Delete(ctx context.Context, key string) error
}

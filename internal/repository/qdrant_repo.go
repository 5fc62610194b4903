package repository

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/syllabuzz/syllabuzz/internal/domain"
)

const (
	defaultVectorDimension = 384
	defaultUpsertBatchSize = 100
	scrollPageSize         = 256
)

// QdrantConnectionConfig holds configuration for Qdrant connection
type QdrantConnectionConfig struct {
	Host            string
	Port            int
	Collection      string
	APIKey          string // Qdrant Cloud API Key (enables TLS automatically)
	UseTLS          bool   // Explicitly enable TLS without API Key
	VectorDimension int
	UpsertBatchSize int
	Timeout         time.Duration // per-RPC deadline, unlimited when zero
}

// apiKeyInterceptor creates a unary interceptor that adds API key to metadata
func apiKeyInterceptor(apiKey string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", apiKey)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// QdrantRepository handles chunk vector operations with Qdrant
type QdrantRepository struct {
	conn            *grpc.ClientConn
	pointsClient    pb.PointsClient
	collectClient   pb.CollectionsClient
	collectionName  string
	vectorDimension int
	batchSize       int
	timeout         time.Duration
}

// NewQdrantRepository creates a new QdrantRepository
// Supports both local Qdrant (insecure) and Qdrant Cloud (TLS + API Key)
func NewQdrantRepository(cfg *QdrantConnectionConfig) (*QdrantRepository, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	vectorDimension := cfg.VectorDimension
	if vectorDimension <= 0 {
		vectorDimension = defaultVectorDimension
	}
	batchSize := cfg.UpsertBatchSize
	if batchSize <= 0 {
		batchSize = defaultUpsertBatchSize
	}

	// Build gRPC dial options
	var opts []grpc.DialOption

	// TLS is enabled if: APIKey is set OR UseTLS is explicitly true
	useTLS := cfg.UseTLS || cfg.APIKey != ""

	if useTLS {
		// TLS 1.3 minimum for Qdrant Cloud
		tlsConfig := &tls.Config{
			MinVersion: tls.VersionTLS13,
		}
		creds := credentials.NewTLS(tlsConfig)
		opts = append(opts, grpc.WithTransportCredentials(creds))

		if cfg.APIKey != "" {
			opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
		}
	} else {
		// Local mode: no TLS, no authentication
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	return &QdrantRepository{
		conn:            conn,
		pointsClient:    pb.NewPointsClient(conn),
		collectClient:   pb.NewCollectionsClient(conn),
		collectionName:  cfg.Collection,
		vectorDimension: vectorDimension,
		batchSize:       batchSize,
		timeout:         cfg.Timeout,
	}, nil
}

// opContext applies the configured RPC deadline to ctx. The caller must
// call the returned cancel func once the RPC finishes.
func (r *QdrantRepository) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

// Close closes the gRPC connection
func (r *QdrantRepository) Close() error {
	return r.conn.Close()
}

// EnsureCollection creates the collection if it doesn't exist and verifies
// the vector dimension of an existing one.
func (r *QdrantRepository) EnsureCollection(ctx context.Context) error {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	info, err := r.collectClient.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: r.collectionName,
	})
	if err == nil {
		if size, ok := collectionVectorSize(info.GetResult()); ok {
			if size != uint64(r.vectorDimension) {
				return &domain.DimensionMismatchError{
					Collection: r.collectionName,
					Want:       r.vectorDimension,
					Got:        int(size),
				}
			}
		}
		return nil // Collection exists
	}

	_, err = r.collectClient.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collectionName,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(r.vectorDimension),
					Distance: pb.Distance_Cosine,
				},
			},
		},
		HnswConfig: &pb.HnswConfigDiff{
			M:                 optionalUint64(16),
			EfConstruct:       optionalUint64(128),
			FullScanThreshold: optionalUint64(10000),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

func optionalUint64(v uint64) *uint64 {
	return &v
}

func collectionVectorSize(info *pb.CollectionInfo) (uint64, bool) {
	if info == nil {
		return 0, false
	}

	config := info.GetConfig()
	if config == nil {
		return 0, false
	}

	params := config.GetParams()
	if params == nil {
		return 0, false
	}

	vectors := params.GetVectorsConfig()
	if vectors == nil {
		return 0, false
	}

	if single := vectors.GetParams(); single != nil {
		if size := single.GetSize(); size > 0 {
			return size, true
		}
	}

	if paramsMap := vectors.GetParamsMap(); paramsMap != nil {
		for _, vectorParams := range paramsMap.GetMap() {
			if vectorParams == nil {
				continue
			}
			if size := vectorParams.GetSize(); size > 0 {
				return size, true
			}
		}
	}

	return 0, false
}

// ChunkPayload is the payload stored with each chunk vector.
type ChunkPayload struct {
	DocumentID  string `json:"document_id"`
	Page        int    `json:"page"`
	ChunkIndex  int    `json:"chunk_index"`
	Text        string `json:"text"`
	Context     string `json:"context"`
	Title       string `json:"title"`
	UnitID      string `json:"unit_id"`
	FacultyCode string `json:"faculty_code"`
	Type        string `json:"type"`
}

// ChunkPoint pairs a point ID and vector with its payload for upsert.
type ChunkPoint struct {
	ID      string
	Vector  []float32
	Payload ChunkPayload
}

// UpsertPoints writes chunk points in batches. If some batches fail the
// successful ones stay written and the error reports which batch indexes
// failed so the caller can retry just those.
func (r *QdrantRepository) UpsertPoints(ctx context.Context, points []ChunkPoint) error {
	var failed []int
	var firstErr error

	batchIndex := 0
	for start := 0; start < len(points); start += r.batchSize {
		end := start + r.batchSize
		if end > len(points) {
			end = len(points)
		}

		batch := make([]*pb.PointStruct, 0, end-start)
		for _, p := range points[start:end] {
			batch = append(batch, &pb.PointStruct{
				Id: &pb.PointId{
					PointIdOptions: &pb.PointId_Uuid{Uuid: p.ID},
				},
				Vectors: &pb.Vectors{
					VectorsOptions: &pb.Vectors_Vector{
						Vector: &pb.Vector{Data: p.Vector},
					},
				},
				Payload: chunkPayloadToValues(&p.Payload),
			})
		}

		callCtx, cancel := r.opContext(ctx)
		_, err := r.pointsClient.Upsert(callCtx, &pb.UpsertPoints{
			CollectionName: r.collectionName,
			Points:         batch,
		})
		cancel()
		if err != nil {
			failed = append(failed, batchIndex)
			if firstErr == nil {
				firstErr = err
			}
		}
		batchIndex++
	}

	if len(failed) > 0 {
		return &domain.PartialUpsertError{
			Collection:    r.collectionName,
			FailedBatches: failed,
			Err:           firstErr,
		}
	}
	return nil
}

func chunkPayloadToValues(p *ChunkPayload) map[string]*pb.Value {
	return map[string]*pb.Value{
		"document_id":  {Kind: &pb.Value_StringValue{StringValue: p.DocumentID}},
		"page":         {Kind: &pb.Value_IntegerValue{IntegerValue: int64(p.Page)}},
		"chunk_index":  {Kind: &pb.Value_IntegerValue{IntegerValue: int64(p.ChunkIndex)}},
		"text":         {Kind: &pb.Value_StringValue{StringValue: p.Text}},
		"context":      {Kind: &pb.Value_StringValue{StringValue: p.Context}},
		"title":        {Kind: &pb.Value_StringValue{StringValue: p.Title}},
		"unit_id":      {Kind: &pb.Value_StringValue{StringValue: p.UnitID}},
		"faculty_code": {Kind: &pb.Value_StringValue{StringValue: p.FacultyCode}},
		"type":         {Kind: &pb.Value_StringValue{StringValue: p.Type}},
	}
}

// SearchResult represents a chunk hit from Qdrant
type SearchResult struct {
	ID      string
	Score   float32
	Payload *ChunkPayload
}

// SearchFilters defines optional filters for search
type SearchFilters struct {
	UnitID      string
	DocumentIDs []string
	FacultyCode string
	Type        string
}

// Search performs a vector similarity search over chunk embeddings.
func (r *QdrantRepository) Search(ctx context.Context, vector []float32, topK int, filters *SearchFilters) ([]SearchResult, error) {
	req := &pb.SearchPoints{
		CollectionName: r.collectionName,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	}

	if filters != nil {
		req.Filter = buildFilter(filters)
	}

	ctx, cancel := r.opContext(ctx)
	defer cancel()

	resp, err := r.pointsClient.Search(ctx, req)
	if err != nil {
		return nil, &domain.SearchUnavailableError{Err: err}
	}

	results := make([]SearchResult, len(resp.Result))
	for i, scored := range resp.Result {
		results[i] = SearchResult{
			ID:      scored.Id.GetUuid(),
			Score:   scored.Score,
			Payload: parsePayload(scored.Payload),
		}
	}

	return results, nil
}

func buildFilter(filters *SearchFilters) *pb.Filter {
	var conditions []*pb.Condition

	if filters.UnitID != "" {
		conditions = append(conditions, keywordCondition("unit_id", filters.UnitID))
	}

	if len(filters.DocumentIDs) > 0 {
		keywords := make([]string, len(filters.DocumentIDs))
		copy(keywords, filters.DocumentIDs)
		conditions = append(conditions, &pb.Condition{
			ConditionOneOf: &pb.Condition_Field{
				Field: &pb.FieldCondition{
					Key: "document_id",
					Match: &pb.Match{
						MatchValue: &pb.Match_Keywords{
							Keywords: &pb.RepeatedStrings{Strings: keywords},
						},
					},
				},
			},
		})
	}

	if filters.FacultyCode != "" {
		conditions = append(conditions, keywordCondition("faculty_code", filters.FacultyCode))
	}

	if filters.Type != "" {
		conditions = append(conditions, keywordCondition("type", filters.Type))
	}

	if len(conditions) == 0 {
		return nil
	}

	return &pb.Filter{
		Must: conditions,
	}
}

func keywordCondition(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}

func parsePayload(payload map[string]*pb.Value) *ChunkPayload {
	if payload == nil {
		return nil
	}

	p := &ChunkPayload{}
	if v, ok := payload["document_id"]; ok {
		p.DocumentID = v.GetStringValue()
	}
	if v, ok := payload["page"]; ok {
		p.Page = int(v.GetIntegerValue())
	}
	if v, ok := payload["chunk_index"]; ok {
		p.ChunkIndex = int(v.GetIntegerValue())
	}
	if v, ok := payload["text"]; ok {
		p.Text = v.GetStringValue()
	}
	if v, ok := payload["context"]; ok {
		p.Context = v.GetStringValue()
	}
	if v, ok := payload["title"]; ok {
		p.Title = v.GetStringValue()
	}
	if v, ok := payload["unit_id"]; ok {
		p.UnitID = v.GetStringValue()
	}
	if v, ok := payload["faculty_code"]; ok {
		p.FacultyCode = v.GetStringValue()
	}
	if v, ok := payload["type"]; ok {
		p.Type = v.GetStringValue()
	}

	return p
}

func documentFilter(documentID string) *pb.Filter {
	return &pb.Filter{
		Must: []*pb.Condition{keywordCondition("document_id", documentID)},
	}
}

// DeleteByDocument removes every chunk point belonging to a document and
// returns how many were deleted. Deleting an unknown document removes
// nothing and returns zero.
func (r *QdrantRepository) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	filter := documentFilter(documentID)

	// Scroll to collect point IDs page by page, then delete by ID. A
	// filter-based delete would also work, but collecting IDs first gives
	// an exact deleted count.
	var ids []*pb.PointId
	var offset *pb.PointId

	for {
		req := &pb.ScrollPoints{
			CollectionName: r.collectionName,
			Filter:         filter,
			Limit:          optionalUint32(scrollPageSize),
			WithPayload: &pb.WithPayloadSelector{
				SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: false},
			},
		}
		if offset != nil {
			req.Offset = offset
		}

		callCtx, cancel := r.opContext(ctx)
		resp, err := r.pointsClient.Scroll(callCtx, req)
		cancel()
		if err != nil {
			return 0, fmt.Errorf("failed to scroll points: %w", err)
		}

		for _, point := range resp.Result {
			ids = append(ids, point.Id)
		}

		offset = resp.NextPageOffset
		if offset == nil || len(resp.Result) == 0 {
			break
		}
	}

	if len(ids) == 0 {
		return 0, nil
	}

	for start := 0; start < len(ids); start += r.batchSize {
		end := start + r.batchSize
		if end > len(ids) {
			end = len(ids)
		}

		callCtx, cancel := r.opContext(ctx)
		_, err := r.pointsClient.Delete(callCtx, &pb.DeletePoints{
			CollectionName: r.collectionName,
			Points: &pb.PointsSelector{
				PointsSelectorOneOf: &pb.PointsSelector_Points{
					Points: &pb.PointsIdsList{Ids: ids[start:end]},
				},
			},
		})
		cancel()
		if err != nil {
			return 0, fmt.Errorf("failed to delete points: %w", err)
		}
	}

	return len(ids), nil
}

func optionalUint32(v uint32) *uint32 {
	return &v
}

// CountByDocument returns the number of indexed chunks for a document.
func (r *QdrantRepository) CountByDocument(ctx context.Context, documentID string) (int, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	resp, err := r.pointsClient.Count(ctx, &pb.CountPoints{
		CollectionName: r.collectionName,
		Filter:         documentFilter(documentID),
		Exact:          optionalBool(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

func optionalBool(v bool) *bool {
	return &v
}

package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/nctb-tutor/internal/core/domain"
	"github.com/kirillkom/nctb-tutor/internal/infrastructure/resilience"
)

// pointNamespace seeds the UUIDv5 point ids derived from chunk ids.
var pointNamespace = uuid.MustParse("6f0d3c59-6a53-4d8e-9a51-3f7f1c2b9e10")

var filterFields = []string{"class_level", "subject", "chapter"}

type Options struct {
	APIKey     string
	Dimensions int
	Timeout    time.Duration
	Executor   *resilience.Executor
}

type Client struct {
	baseURL    string
	collection string
	apiKey     string
	dimensions int
	httpClient *http.Client
	executor   *resilience.Executor

	ensureMu          sync.Mutex
	ensuredCollection bool
}

func New(baseURL, collection string, opts Options) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, domain.WrapError(domain.ErrMissingCredentials, "qdrant client", errors.New("QDRANT_URL is not set"))
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		apiKey:     opts.APIKey,
		dimensions: opts.Dimensions,
		httpClient: &http.Client{Timeout: opts.Timeout},
		executor:   opts.Executor,
	}, nil
}

// PointID maps a chunk id onto the stable UUID used as the qdrant point id.
func PointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

// EnsureIndex creates the collection and its keyword payload indexes when
// missing. It runs once per client.
func (c *Client) EnsureIndex(ctx context.Context) error {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	if c.ensuredCollection {
		return nil
	}

	status, err := c.do(ctx, http.MethodGet, c.collectionURL(""), nil, nil, "get collection", http.StatusNotFound)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		if c.dimensions <= 0 {
			return domain.WrapError(domain.ErrInvalidInput, "qdrant create collection", errors.New("vector dimension is not configured"))
		}
		body := map[string]any{
			"vectors": map[string]any{
				"size":     c.dimensions,
				"distance": "Cosine",
			},
		}
		// 409 means another process created it first.
		if _, err := c.do(ctx, http.MethodPut, c.collectionURL(""), body, nil, "create collection", http.StatusConflict); err != nil {
			return err
		}
		for _, field := range filterFields {
			indexBody := map[string]any{"field_name": field, "field_schema": "keyword"}
			if _, err := c.do(ctx, http.MethodPut, c.collectionURL("/index?wait=true"), indexBody, nil, "create payload index", http.StatusConflict); err != nil {
				return err
			}
		}
	}

	c.ensuredCollection = true
	return nil
}

func (c *Client) Upsert(ctx context.Context, chunkID string, vector []float32, meta domain.ChunkMetadata) error {
	if strings.TrimSpace(chunkID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "qdrant upsert", errors.New("empty chunk id"))
	}
	if len(vector) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "qdrant upsert", errors.New("empty vector"))
	}

	body := map[string]any{
		"points": []map[string]any{
			{
				"id":     PointID(chunkID),
				"vector": vector,
				"payload": map[string]any{
					"chunk_id":    chunkID,
					"class_level": meta.ClassLevel,
					"subject":     meta.Subject,
					"chapter":     meta.Chapter,
					"page_number": meta.PageNumber,
					"word_count":  meta.WordCount,
				},
			},
		},
	}
	_, err := c.do(ctx, http.MethodPut, c.collectionURL("/points?wait=true"), body, nil, "upsert")
	return err
}

func (c *Client) Query(
	ctx context.Context,
	vector []float32,
	filter domain.RetrievalFilter,
	topK int,
) ([]domain.VectorHit, error) {
	if topK <= 0 {
		return []domain.VectorHit{}, nil
	}

	body := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": []string{"chunk_id"},
	}
	if must := buildFilter(filter); must != nil {
		body["filter"] = must
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if _, err := c.do(ctx, http.MethodPost, c.collectionURL("/points/search"), body, &searchResp, "search"); err != nil {
		return nil, err
	}

	out := make([]domain.VectorHit, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		chunkID := getStringPayload(r.Payload, "chunk_id")
		if chunkID == "" {
			continue
		}
		out = append(out, domain.VectorHit{ChunkID: chunkID, Score: clampScore(r.Score)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (c *Client) DeleteByFilter(ctx context.Context, filter domain.RetrievalFilter) error {
	if err := filter.Validate(); err != nil {
		return err
	}
	body := map[string]any{"filter": buildFilter(filter)}
	_, err := c.do(ctx, http.MethodPost, c.collectionURL("/points/delete?wait=true"), body, nil, "delete")
	return err
}

func (c *Client) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", c.baseURL, c.collection, suffix)
}

// do sends one JSON request through the resilience executor. Statuses listed
// in accept are returned without error.
func (c *Client) do(
	ctx context.Context,
	method, url string,
	payload any,
	out any,
	operation string,
	accept ...int,
) (int, error) {
	status, err := resilience.Call(ctx, c.executor, "qdrant."+strings.ReplaceAll(operation, " ", "_"), func(callCtx context.Context) (int, error) {
		return c.send(callCtx, method, url, payload, out, operation, accept)
	}, resilience.ClassifyHTTPError)
	if err != nil {
		return 0, resilience.WrapUpstream("qdrant "+operation, err, resilience.ClassifyHTTPError)
	}
	return status, nil
}

func (c *Client) send(
	ctx context.Context,
	method, url string,
	payload any,
	out any,
	operation string,
	accept []int,
) (int, error) {
	var reader *bytes.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("marshal %s body: %w", operation, err)
		}
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	for _, code := range accept {
		if resp.StatusCode == code {
			return resp.StatusCode, nil
		}
	}
	if resp.StatusCode >= 300 {
		return resp.StatusCode, resilience.NewHTTPStatusError("qdrant", operation, resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s response: %w", operation, err)
		}
	}
	return resp.StatusCode, nil
}

func buildFilter(filter domain.RetrievalFilter) map[string]any {
	fields := filter.Fields()
	if len(fields) == 0 {
		return nil
	}
	must := make([]map[string]any, 0, len(fields))
	for _, key := range filterFields {
		value, ok := fields[key]
		if !ok {
			continue
		}
		must = append(must, map[string]any{
			"key": key,
			"match": map[string]any{
				"value": value,
			},
		})
	}
	return map[string]any{"must": must}
}

func clampScore(score float64) float64 {
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

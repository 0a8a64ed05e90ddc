package vendors

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/config"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/log"
)

var (
	qdrantClient     *QdrantClient
	qdrantClientOnce sync.Once
)

// QdrantClient wraps the Qdrant client
type QdrantClient struct {
	client     *qdrant.Client
	collection string
}

// GetQdrantClient returns the singleton Qdrant client, or nil when not configured
func GetQdrantClient() *QdrantClient {
	qdrantClientOnce.Do(func() {
		cfg := config.Get()

		qdrantHost := cfg.QdrantHost
		if qdrantHost == "" {
			log.Warn().Msg("Qdrant host not configured, Qdrant disabled")
			return
		}

		// The Qdrant Go client expects Host (without protocol) and Port separately
		qdrantHost = strings.TrimSuffix(qdrantHost, "/")
		parsedURL, err := url.Parse(qdrantHost)
		if err != nil {
			log.Error().Err(err).Str("url", qdrantHost).Msg("failed to parse Qdrant URL")
			return
		}

		hostname := parsedURL.Hostname()
		port := parsedURL.Port()
		if port == "" {
			// Default to gRPC port
			port = "6334"
		}
		portNum, err := strconv.Atoi(port)
		if err != nil {
			log.Error().Err(err).Str("port", port).Msg("invalid Qdrant port")
			return
		}

		client, err := qdrant.NewClient(&qdrant.Config{
			Host:   hostname,
			Port:   portNum,
			APIKey: cfg.QdrantAPIKey,
			UseTLS: parsedURL.Scheme == "https",
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to create Qdrant client")
			return
		}

		// Ensure collection exists
		exists, err := client.CollectionExists(context.Background(), cfg.QdrantCollection)
		if err != nil {
			log.Error().Err(err).Msg("failed to check collection")
			return
		}

		if !exists {
			err = client.CreateCollection(context.Background(), &qdrant.CreateCollection{
				CollectionName: cfg.QdrantCollection,
				VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
					Size:     1024, // HAID Qwen/Qwen3-Embedding-0.6B dimension
					Distance: qdrant.Distance_Cosine,
				}),
			})
			if err != nil {
				log.Error().Err(err).Msg("failed to create collection")
				return
			}
			log.Info().Str("collection", cfg.QdrantCollection).Msg("created Qdrant collection")
		}

		qdrantClient = &QdrantClient{
			client:     client,
			collection: cfg.QdrantCollection,
		}

		log.Info().Str("host", hostname).Int("port", portNum).Str("collection", cfg.QdrantCollection).Msg("Qdrant initialized")
	})

	return qdrantClient
}

// PointID derives a stable Qdrant point id (UUID) from a document id
func PointID(documentID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(documentID)).String()
}

// Upsert adds or updates a point
func (q *QdrantClient) Upsert(ctx context.Context, documentID string, vector []float32, payload map[string]interface{}) error {
	if q == nil {
		return nil
	}

	qdrantPayload := make(map[string]*qdrant.Value)
	for k, v := range payload {
		switch val := v.(type) {
		case string:
			qdrantPayload[k] = &qdrant.Value{
				Kind: &qdrant.Value_StringValue{StringValue: val},
			}
		case int:
			qdrantPayload[k] = &qdrant.Value{
				Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(val)},
			}
		case float64:
			qdrantPayload[k] = &qdrant.Value{
				Kind: &qdrant.Value_DoubleValue{DoubleValue: val},
			}
		}
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewIDUUID(PointID(documentID)),
				Vectors: qdrant.NewVectorsDense(vector),
				Payload: qdrantPayload,
			},
		},
	})
	return err
}

// Delete removes a point by document id
func (q *QdrantClient) Delete(ctx context.Context, documentID string) error {
	if q == nil {
		return nil
	}

	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{
					Ids: []*qdrant.PointId{qdrant.NewIDUUID(PointID(documentID))},
				},
			},
		},
	})
	return err
}

package vendors

import (
	"strings"
	"sync"

	"github.com/meilisearch/meilisearch-go"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/config"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/log"
)

var (
	meiliClient     *MeiliClient
	meiliClientOnce sync.Once
)

// MeiliClient wraps the Meilisearch client
type MeiliClient struct {
	client   meilisearch.ServiceManager
	index    meilisearch.IndexManager
	indexUID string
}

// GetMeiliClient returns the singleton Meilisearch client, or nil when not configured
func GetMeiliClient() *MeiliClient {
	meiliClientOnce.Do(func() {
		cfg := config.Get()

		meiliHost := cfg.MeiliHost
		if meiliHost == "" {
			log.Warn().Msg("Meilisearch host not configured, Meilisearch disabled")
			return
		}

		// Strip trailing slash to avoid URL parsing issues
		meiliHost = strings.TrimSuffix(meiliHost, "/")

		client := meilisearch.New(meiliHost, meilisearch.WithAPIKey(cfg.MeiliAPIKey))

		// Verify connection
		if _, err := client.Health(); err != nil {
			log.Error().Err(err).Msg("failed to connect to Meilisearch")
			return
		}

		// Ensure index exists
		indexUID := cfg.MeiliIndex
		_, err := client.GetIndex(indexUID)
		if err != nil {
			log.Info().Str("index", indexUID).Msg("creating Meilisearch index")
			taskInfo, err := client.CreateIndex(&meilisearch.IndexConfig{
				Uid:        indexUID,
				PrimaryKey: "documentId",
			})
			if err != nil {
				log.Error().Err(err).Msg("failed to create Meilisearch index")
				return
			}
			_, err = client.WaitForTask(taskInfo.TaskUID, 0)
			if err != nil {
				log.Error().Err(err).Msg("failed to wait for Meilisearch index creation")
				return
			}
			log.Info().Str("index", indexUID).Msg("Meilisearch index created")
		}

		meiliClient = &MeiliClient{
			client:   client,
			index:    client.Index(indexUID),
			indexUID: indexUID,
		}

		log.Info().Str("host", meiliHost).Str("index", indexUID).Msg("Meilisearch initialized")
	})

	return meiliClient
}

// IndexDocument indexes (or replaces) a document
func (m *MeiliClient) IndexDocument(doc map[string]interface{}) error {
	if m == nil {
		return nil
	}

	primaryKey := "documentId"
	_, err := m.index.AddDocuments([]map[string]interface{}{doc}, &meilisearch.DocumentOptions{
		PrimaryKey: &primaryKey,
	})
	return err
}

// DeleteDocument removes a document
func (m *MeiliClient) DeleteDocument(documentID string) error {
	if m == nil {
		return nil
	}

	_, err := m.index.DeleteDocument(documentID, nil)
	return err
}

package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/dgo/v230"
	"github.com/dgraph-io/dgo/v230/protos/api"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/quantumflow/agentflow/internal/models"
)

// DgraphProfileStore keeps learned user profiles as graph nodes
type DgraphProfileStore struct {
	client *dgo.Dgraph
	conn   *grpc.ClientConn
}

// NewDgraphProfileStore connects to a Dgraph alpha and installs the schema
func NewDgraphProfileStore(config *Config) (*DgraphProfileStore, error) {
	conn, err := grpc.NewClient(config.DgraphAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Dgraph: %w", err)
	}

	store := &DgraphProfileStore{
		client: dgo.NewDgraphClient(api.NewDgraphClient(conn)),
		conn:   conn,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := store.initSchema(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema sets up the user profile type
func (s *DgraphProfileStore) initSchema(ctx context.Context) error {
	schema := `
		type UserProfile {
			user.id
			user.intent
			user.sentiment
			user.expertise
			user.strategies
			user.updated
		}

		user.id: string @index(exact) @upsert .
		user.intent: string @index(exact) .
		user.sentiment: string @index(exact) .
		user.expertise: string .
		user.strategies: [string] @index(exact) .
		user.updated: datetime .
	`

	return s.client.Alter(ctx, &api.Operation{Schema: schema})
}

type profileNode struct {
	UID        string    `json:"uid,omitempty"`
	UserID     string    `json:"user.id"`
	Intent     string    `json:"user.intent,omitempty"`
	Sentiment  string    `json:"user.sentiment,omitempty"`
	Expertise  string    `json:"user.expertise,omitempty"`
	Strategies []string  `json:"user.strategies,omitempty"`
	Updated    time.Time `json:"user.updated"`
	Type       string    `json:"dgraph.type,omitempty"`
}

// UpsertProfile records the latest profile of a user for a strategy.
// Empty profile fields leave the stored value untouched.
func (s *DgraphProfileStore) UpsertProfile(ctx context.Context, userID, strategy string, profile models.UserProfile) error {
	node := profileNode{
		UID:        "uid(u)",
		UserID:     userID,
		Intent:     profile.Intent,
		Sentiment:  profile.Sentiment,
		Expertise:  profile.Expertise,
		Strategies: []string{strategy},
		Updated:    time.Now().UTC(),
		Type:       "UserProfile",
	}

	data, err := json.Marshal(node)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	req := &api.Request{
		Query:     `query q($id: string) { u as var(func: eq(user.id, $id)) }`,
		Vars:      map[string]string{"$id": userID},
		Mutations: []*api.Mutation{{SetJson: data}},
		CommitNow: true,
	}

	txn := s.client.NewTxn()
	defer txn.Discard(ctx)

	if _, err := txn.Do(ctx, req); err != nil {
		return fmt.Errorf("profile upsert failed: %w", err)
	}
	return nil
}

// GetProfile returns the stored profile of a user
func (s *DgraphProfileStore) GetProfile(ctx context.Context, userID string) (*StoredProfile, error) {
	q := `query q($id: string) {
		profile(func: eq(user.id, $id)) {
			uid
			user.id
			user.intent
			user.sentiment
			user.expertise
			user.strategies
			user.updated
		}
	}`

	txn := s.client.NewReadOnlyTxn()
	defer txn.Discard(ctx)

	resp, err := txn.QueryWithVars(ctx, q, map[string]string{"$id": userID})
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	var result struct {
		Profile []profileNode `json:"profile"`
	}
	if err := json.Unmarshal(resp.Json, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(result.Profile) == 0 {
		return nil, fmt.Errorf("profile not found: %s", userID)
	}

	n := result.Profile[0]
	return &StoredProfile{
		UserID: n.UserID,
		Profile: models.UserProfile{
			Intent:    n.Intent,
			Sentiment: n.Sentiment,
			Expertise: n.Expertise,
		},
		Strategies: n.Strategies,
		UpdatedAt:  n.Updated,
	}, nil
}

// Close closes the Dgraph connection
func (s *DgraphProfileStore) Close() error {
	return s.conn.Close()
}

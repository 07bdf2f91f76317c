package testserver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tallgren/gatecheck/internal/domain/answers"
	"github.com/tallgren/gatecheck/internal/domain/catalog"
	"github.com/tallgren/gatecheck/internal/domain/progress"
	"github.com/tallgren/gatecheck/internal/domain/raci"
	"github.com/tallgren/gatecheck/internal/mcp"
	"github.com/tallgren/gatecheck/internal/sqlite"
	"github.com/tallgren/gatecheck/internal/transport"
)

const (
	answersField     = "Custom.AnswersField"
	assignmentsField = "Custom.RoleAssignmentsField"
)

type TestServer struct {
	Server *httptest.Server
	DB     *sqlite.DB
	Token  string
	Scope  string
}

func New(t *testing.T, token, scope string) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	configStore := sqlite.NewConfigStore(db)
	workItems := sqlite.NewWorkItemStore(db)
	apiKeys := sqlite.NewAPIKeyStore(db)

	catalogSvc := catalog.NewService(configStore, nil)
	answerSvc := answers.NewService(catalogSvc, answersField, nil)
	assignmentSvc := raci.NewService(catalogSvc, assignmentsField, nil)
	progressSvc := progress.NewAggregator(workItems, answersField, nil)

	handler := mcp.NewHandler(catalogSvc, answerSvc, assignmentSvc, progressSvc, workItems)

	resolver := &apiKeyResolver{keys: apiKeys}
	server := httptest.NewServer(transport.NewServer(transport.Deps{
		Catalog:   catalogSvc,
		Answers:   answerSvc,
		RACI:      assignmentSvc,
		Progress:  progressSvc,
		WorkItems: workItems,
		MCP:       handler,
	}, transport.AuthMiddleware(resolver)))

	ts := &TestServer{
		Server: server,
		DB:     db,
		Token:  token,
		Scope:  scope,
	}

	require.NoError(t, ts.AddAPIKey(token, scope))

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return ts
}

func (ts *TestServer) AddAPIKey(token, scope string) error {
	keys := sqlite.NewAPIKeyStore(ts.DB)
	return keys.Insert(context.Background(), hashToken(token), scope, "test key")
}

type apiKeyResolver struct {
	keys *sqlite.APIKeyStore
}

func (r *apiKeyResolver) ResolveScope(ctx context.Context, token string) (string, error) {
	scope, err := r.keys.ResolveScope(ctx, hashToken(token))
	if err != nil || scope == "" {
		return "", transport.ErrUnauthorized
	}
	return scope, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

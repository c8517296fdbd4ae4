package db

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// testMongoURI reads MONGO_URI, loading the project .env first if present.
func testMongoURI() string {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "..", "..")
	if err := godotenv.Load(filepath.Join(projectRoot, ".env")); err != nil {
		_ = godotenv.Load()
	}
	return os.Getenv("MONGO_URI")
}

// SetupTestDB connects to the MongoDB named by MONGO_URI and drops the given
// collections. The test is skipped when MONGO_URI is unset.
func SetupTestDB(t *testing.T, dbName string, collections ...string) *mongo.Database {
	t.Helper()
	uri := testMongoURI()
	if uri == "" {
		t.Skip("MONGO_URI not set; skipping MongoDB integration test")
	}

	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
	require.NoError(t, err, "Failed to connect to MongoDB")
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	database := client.Database(dbName)
	for _, c := range collections {
		_ = database.Collection(c).Drop(context.Background())
	}
	return database
}

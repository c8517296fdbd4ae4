package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"realty/catalog/internal/auth"
	"realty/catalog/internal/models"
)

const (
	testAppBinary      = "./catalog_test_app"
	testAppPort        = "8089"
	testServiceApiPort = "8091"
	testDbName         = "realty_integration"
	testJwtSecret      = "integration-test-secret"
	testAppURL         = "http://localhost:" + testAppPort
	testServiceApiURL  = "http://localhost:" + testServiceApiPort
	startupTimeout     = 15 * time.Second
	pingEndpoint       = testAppURL + "/api/ping"
)

// TestMain builds the binary, starts it in api mode against a scratch
// database and runs the tests over HTTP.
func TestMain(m *testing.M) {
	_ = godotenv.Load()
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		log.Println("MONGO_URI not set; skipping end-to-end tests")
		return
	}

	defer func() {
		_ = os.Remove(testAppBinary)
	}()

	log.Println("Integration Test Setup: Building application...")
	buildCmd := exec.Command("go", "build", "-o", testAppBinary, ".")
	if out, err := buildCmd.CombinedOutput(); err != nil {
		log.Printf("Failed to build application: %v\nOutput:\n%s", err, string(out))
		os.Exit(1)
	}

	if err := dropTestCollection(mongoURI); err != nil {
		log.Printf("Failed to reset test database: %v", err)
		os.Exit(1)
	}
	defer func() { _ = dropTestCollection(mongoURI) }()

	apiCmd := exec.Command(testAppBinary, "-m", "api")
	apiCmd.Env = append(os.Environ(),
		"API_PORT="+testAppPort,
		"SERVICE_API_PORT="+testServiceApiPort,
		"MONGO_DB_NAME="+testDbName,
		"JWT_SECRET="+testJwtSecret,
		"GIN_MODE=release",
		"AWS_S3_BUCKET=",
		"RATE_LIMIT_HARD_BUCKET_SIZE=200",
		"RATE_LIMIT_HARD_REFILL_RATE=200",
		"RATE_LIMIT_SOFT_BUCKET_SIZE=100",
		"RATE_LIMIT_SOFT_REFILL_RATE=100",
	)
	apiCmd.Stderr = os.Stderr
	apiCmd.Stdout = os.Stdout
	if err := apiCmd.Start(); err != nil {
		log.Printf("Failed to start API process: %v", err)
		os.Exit(1)
	}
	defer func() {
		if err := apiCmd.Process.Signal(syscall.SIGTERM); err != nil {
			_ = apiCmd.Process.Kill()
			return
		}
		_, _ = apiCmd.Process.Wait()
	}()

	if !waitForPing() {
		log.Printf("Application failed to start within %v", startupTimeout)
		_ = apiCmd.Process.Kill()
		os.Exit(1)
	}

	exitCode := m.Run()
	log.Printf("Integration Test Teardown: Tests finished with exit code %d.", exitCode)
}

func dropTestCollection(uri string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return err
	}
	defer client.Disconnect(context.Background())
	return client.Database(testDbName).Collection("properties").Drop(ctx)
}

func waitForPing() bool {
	deadline := time.Now().Add(startupTimeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(pingEndpoint)
		if err == nil {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK && string(body) == "pong" {
				return true
			}
		}
		time.Sleep(200 * time.Millisecond)
	}
	return false
}

func editorToken(t *testing.T) string {
	t.Helper()
	token, err := auth.GenerateJWT("integration", testJwtSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, method, target string, body interface{}, token string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, target, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func listingPayload(city string, price float64) map[string]interface{} {
	return map[string]interface{}{
		"title":       "Квартира у метро",
		"description": "Две комнаты, свежий ремонт",
		"price":       price,
		"dealType":    "rent",
		"category":    "apartment",
		"area":        52,
		"rooms":       2,
		"floor":       3,
		"totalFloors": 12,
		"address":     map[string]string{"city": city, "metro": "Тверская"},
		"features":    []string{"parking", "balcony"},
		"contact":     map[string]string{"name": "Иван", "phone": "+79000000000"},
	}
}

func TestIntegration_Ping(t *testing.T) {
	resp, err := http.Get(pingEndpoint)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", string(body))
}

func TestIntegration_ListingLifecycle(t *testing.T) {
	token := editorToken(t)

	resp, body := doJSON(t, http.MethodPost, testAppURL+"/api/properties", listingPayload("Москва", 65000), token)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var created models.Listing
	require.NoError(t, json.Unmarshal(body, &created))
	require.False(t, created.ID.IsZero())
	assert.Equal(t, models.StatusActive, created.Status)
	assert.InDelta(t, 65000.0/52, created.PricePerMeter, 0.01)
	listingURL := testAppURL + "/api/properties/" + created.ID.Hex()

	query := url.Values{
		"dealType": {"rent"}, "city": {"Москва"}, "minPrice": {"30000"},
		"maxPrice": {"80000"}, "features": {"parking"},
	}
	resp, body = doJSON(t, http.MethodGet, testAppURL+"/api/properties?"+query.Encode(), nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var page models.ListingPage
	require.NoError(t, json.Unmarshal(body, &page))
	require.NotEmpty(t, page.Items)
	assert.Equal(t, created.ID, page.Items[0].ID)

	resp, body = doJSON(t, http.MethodPatch, listingURL, map[string]interface{}{"price": 70000}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var patched models.Listing
	require.NoError(t, json.Unmarshal(body, &patched))
	assert.Equal(t, 70000.0, patched.Price)
	assert.Equal(t, created.Title, patched.Title)
	assert.True(t, patched.UpdatedAt.After(created.UpdatedAt) || patched.UpdatedAt.Equal(created.UpdatedAt))

	resp, body = doJSON(t, http.MethodDelete, listingURL, nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), "Объект успешно удален")

	resp, body = doJSON(t, http.MethodGet, listingURL, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "Объект не найден")

	resp, _ = doJSON(t, http.MethodDelete, listingURL, nil, token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIntegration_MutationsNeedToken(t *testing.T) {
	resp, _ := doJSON(t, http.MethodPost, testAppURL+"/api/properties", listingPayload("Казань", 40000), "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestIntegration_Validation(t *testing.T) {
	resp, body := doJSON(t, http.MethodGet, testAppURL+"/api/properties?limit=500", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var envelope struct {
		Error string `json:"error"`
		Field string `json:"field"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope))
	assert.Equal(t, "validation_error", envelope.Error)
	assert.Equal(t, "limit", envelope.Field)

	bad := listingPayload("Казань", 40000)
	bad["floor"] = 20
	resp, _ = doJSON(t, http.MethodPost, testAppURL+"/api/properties", bad, editorToken(t))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, testAppURL+"/api/properties/not-an-id", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIntegration_ServiceStats(t *testing.T) {
	resp, body := doJSON(t, http.MethodPost, testServiceApiURL+"/api", map[string]string{"method": "stats"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out struct {
		Success bool `json:"success"`
		Result  struct {
			RunMode string `json:"runMode"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.True(t, out.Success)
	assert.Equal(t, "api", out.Result.RunMode)
}

package mongo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/fraternet/notify-service/internal/config"
	"github.com/fraternet/notify-service/internal/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// testTimeout: общий дедлайн на операции с БД в тестах.
const testTimeout = 10 * time.Second

// TestMain запускает MongoDB в контейнере один раз на весь пакет тестов.
// Адрес контейнера прокидывается в ENV DATABASE_URL, а каждый тест
// создаёт свою БД с уникальным именем (см. newTestConfig).
func TestMain(m *testing.M) {
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		os.Exit(m.Run())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	req := testcontainers.ContainerRequest{
		Image:        "mongo:7.0",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(90 * time.Second),
	}

	mongoC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start mongo testcontainer: %v\n", err)
		os.Exit(1)
	}

	host, err := mongoC.Host(ctx)
	if err != nil {
		_ = mongoC.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get container host: %v\n", err)
		os.Exit(1)
	}

	port, err := mongoC.MappedPort(ctx, "27017/tcp")
	if err != nil {
		_ = mongoC.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get mapped port: %v\n", err)
		os.Exit(1)
	}

	_ = os.Setenv("DATABASE_URL", fmt.Sprintf("mongodb://%s:%s", host, port.Port()))

	code := m.Run()

	_ = mongoC.Terminate(context.Background())
	os.Exit(code)
}

// newTestConfig создаёт конфиг с отдельной тестовой БД.
func newTestConfig(t *testing.T) *config.Config {
	t.Helper()

	baseURL := os.Getenv("DATABASE_URL")
	if baseURL == "" {
		baseURL = "mongodb://localhost:27017"
	}

	dbName := "notify_test_" + uuid.New().String()
	if baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL + dbName
	} else {
		baseURL = baseURL + "/" + dbName
	}

	return &config.Config{
		DB: config.DBConfig{URL: baseURL},
	}
}

// mustNewMongo создаёт подключение к тестовой БД и регистрирует очистку по завершении теста.
// Без GO_TEST_INTEGRATION контейнер не поднимается, и тест пропускается.
func mustNewMongo(t *testing.T, cfg *config.Config) *Mongo {
	t.Helper()

	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("set GO_TEST_INTEGRATION=1 to run mongo integration tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	m, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("cannot connect to MongoDB in container: %v (DATABASE_URL=%s)", err, cfg.DB.URL)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
		defer cancel()
		_ = m.db.Drop(ctx)
		_ = m.Close(ctx)
	})

	return m
}

// TestDatabaseFromURI: имя БД берётся из пути URI, иначе дефолт.
func TestDatabaseFromURI(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"mongodb://localhost:27017/fraternet_prod", "fraternet_prod"},
		{"mongodb://u:p@h1,h2/app?replicaSet=rs0", "app"},
		{"mongodb://localhost:27017", defaultDBName},
		{"mongodb://localhost:27017/", defaultDBName},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, databaseFromURI(tt.uri), tt.uri)
	}
}

// TestIDFilter: hex-идентификатор ищется и как строка, и как ObjectID.
func TestIDFilter(t *testing.T) {
	require.Equal(t, bson.M{"_id": "u-1"}, idFilter("u-1"))

	oid := primitive.NewObjectID()
	f := idFilter(oid.Hex())
	in := f["_id"].(bson.M)["$in"].(bson.A)
	require.Equal(t, oid.Hex(), in[0])
	require.Equal(t, oid, in[1])
}

func TestNew_Validation(t *testing.T) {
	_, err := New(context.Background(), nil)
	require.Error(t, err)

	_, err = New(context.Background(), &config.Config{})
	require.Error(t, err)
}

func TestUserByID(t *testing.T) {
	m := mustNewMongo(t, newTestConfig(t))

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	oid := primitive.NewObjectID()
	_, err := m.users.InsertMany(ctx, []any{
		bson.M{"_id": "u-1", "firstName": "Ann", "lastName": "Lee", "fcmToken": "tok-1", "bio": "ignored"},
		bson.M{"_id": oid, "firstName": "Bob", "lastName": "Ray"},
	})
	require.NoError(t, err)

	u, err := m.UserByID(ctx, "u-1")
	require.NoError(t, err)
	require.Equal(t, "u-1", u.ID)
	require.Equal(t, "Ann Lee", u.DisplayName())
	require.Equal(t, "tok-1", u.FCMToken)

	u, err = m.UserByID(ctx, oid.Hex())
	require.NoError(t, err)
	require.Equal(t, oid.Hex(), u.ID)
	require.False(t, u.HasToken())

	_, err = m.UserByID(ctx, "missing")
	require.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestListUsers(t *testing.T) {
	m := mustNewMongo(t, newTestConfig(t))

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	users, err := m.ListUsers(ctx)
	require.NoError(t, err)
	require.Empty(t, users)

	_, err = m.users.InsertMany(ctx, []any{
		bson.M{"_id": "a", "firstName": "A", "fcmToken": "ta"},
		bson.M{"_id": "b", "firstName": "B"},
		bson.M{"_id": "c", "firstName": "C", "fcmToken": "tc"},
	})
	require.NoError(t, err)

	users, err = m.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)

	tokens := map[string]string{}
	for _, u := range users {
		tokens[u.ID] = u.FCMToken
	}
	require.Equal(t, map[string]string{"a": "ta", "b": "", "c": "tc"}, tokens)
}

func TestResumeToken_RoundTrip(t *testing.T) {
	m := mustNewMongo(t, newTestConfig(t))

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	_, err := m.ResumeToken(ctx, "changestream")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, m.SaveResumeToken(ctx, "changestream", []byte("first")))
	require.NoError(t, m.SaveResumeToken(ctx, "changestream", []byte("second")))

	tok, err := m.ResumeToken(ctx, "changestream")
	require.NoError(t, err)
	require.Equal(t, []byte("second"), tok)

	n, err := m.cursors.CountDocuments(ctx, bson.M{})
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

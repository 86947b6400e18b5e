package config

import (
	"testing"

	"github.com/go-redis/redismock/v9"
)

func TestConnectRedisSkippedInTestEnv(t *testing.T) {
	t.Setenv("APPENV", "test")
	ResetRedisClientForTest()
	defer ResetRedisClientForTest()

	client, err := ConnectRedis()
	if err != nil {
		t.Fatalf("expected no error in test env, got %v", err)
	}
	if client != nil {
		t.Fatalf("expected nil client in test env")
	}
}

func TestGetRedisClientReturnsInjected(t *testing.T) {
	ResetRedisClientForTest()
	defer ResetRedisClientForTest()

	mockClient, _ := redismock.NewClientMock()
	SetRedisClientForTest(mockClient)

	if got := GetRedisClient(); got != mockClient {
		t.Fatalf("expected injected mock client to be returned")
	}
}

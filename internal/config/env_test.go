package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadEnv(t *testing.T) {
	// Set environment variables for testing
	t.Setenv("APP_ENV", "test-env")
	t.Setenv("APP_NAME", "test-app")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_HOST", "test-db-host")
	t.Setenv("CLIENT_TOKEN_EXPIRY", "30m")
	t.Setenv("ALLOWED_ORIGINS", "https://example.com,https://api.example.com")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("FILES_MAX_UPLOAD_SIZE", "2048")
	t.Setenv("RATE_LIMIT_WRITES_PER_SECOND", "0.5")

	config := &AppConfig{}

	if err := LoadEnv(config); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}

	// Check that environment variables were loaded
	if config.App.Environment != "test-env" {
		t.Errorf("Expected App.Environment = %s, got %s", "test-env", config.App.Environment)
	}

	if config.App.Name != "test-app" {
		t.Errorf("Expected App.Name = %s, got %s", "test-app", config.App.Name)
	}

	if config.Server.Port != 9090 {
		t.Errorf("Expected Server.Port = %d, got %d", 9090, config.Server.Port)
	}

	if config.Database.Driver != "postgres" || config.Database.Host != "test-db-host" {
		t.Errorf("Unexpected database settings %+v", config.Database)
	}

	if config.ClientToken.Expiry != 30*time.Minute {
		t.Errorf("Expected ClientToken.Expiry = %v, got %v", 30*time.Minute, config.ClientToken.Expiry)
	}

	if len(config.CORS.AllowedOrigins) != 2 ||
		config.CORS.AllowedOrigins[0] != "https://example.com" ||
		config.CORS.AllowedOrigins[1] != "https://api.example.com" {
		t.Errorf("Expected CORS.AllowedOrigins = %v, got %v",
			[]string{"https://example.com", "https://api.example.com"},
			config.CORS.AllowedOrigins)
	}

	if !config.CORS.AllowCredentials {
		t.Errorf("Expected CORS.AllowCredentials = %v, got %v", true, config.CORS.AllowCredentials)
	}

	if config.Storage.Backend != "memory" {
		t.Errorf("Expected Storage.Backend = %s, got %s", "memory", config.Storage.Backend)
	}

	if config.Files.MaxUploadSize != 2048 {
		t.Errorf("Expected Files.MaxUploadSize = %d, got %d", 2048, config.Files.MaxUploadSize)
	}

	if config.RateLimit.WritesPerSecond != 0.5 {
		t.Errorf("Expected RateLimit.WritesPerSecond = %v, got %v", 0.5, config.RateLimit.WritesPerSecond)
	}
}

func TestProcessStructEnv(t *testing.T) {
	// Define a test struct
	type TestStruct struct {
		StringField string        `env:"TEST_STRING"`
		IntField    int           `env:"TEST_INT"`
		BoolField   bool          `env:"TEST_BOOL"`
		DurField    time.Duration `env:"TEST_DURATION"`
		FloatField  float64       `env:"TEST_FLOAT"`
		StrSlice    []string      `env:"TEST_SLICE"`
		NoEnvTag    string
	}

	// Set environment variables
	os.Setenv("TEST_STRING", "test-value")
	os.Setenv("TEST_INT", "42")
	os.Setenv("TEST_BOOL", "true")
	os.Setenv("TEST_DURATION", "15m")
	os.Setenv("TEST_FLOAT", "3.14")
	os.Setenv("TEST_SLICE", "item1,item2,item3")

	// Clean up
	defer func() {
		os.Unsetenv("TEST_STRING")
		os.Unsetenv("TEST_INT")
		os.Unsetenv("TEST_BOOL")
		os.Unsetenv("TEST_DURATION")
		os.Unsetenv("TEST_FLOAT")
		os.Unsetenv("TEST_SLICE")
	}()

	// Create struct
	testStruct := &TestStruct{}

	// Process environment variables
	err := processStructEnv(testStruct)
	if err != nil {
		t.Fatalf("processStructEnv() error = %v", err)
	}

	// Check values
	if testStruct.StringField != "test-value" {
		t.Errorf("Expected StringField = %s, got %s", "test-value", testStruct.StringField)
	}

	if testStruct.IntField != 42 {
		t.Errorf("Expected IntField = %d, got %d", 42, testStruct.IntField)
	}

	if !testStruct.BoolField {
		t.Errorf("Expected BoolField = %v, got %v", true, testStruct.BoolField)
	}

	if testStruct.DurField != 15*time.Minute {
		t.Errorf("Expected DurField = %v, got %v", 15*time.Minute, testStruct.DurField)
	}

	if testStruct.FloatField != 3.14 {
		t.Errorf("Expected FloatField = %f, got %f", 3.14, testStruct.FloatField)
	}

	expectedSlice := []string{"item1", "item2", "item3"}
	if len(testStruct.StrSlice) != len(expectedSlice) {
		t.Errorf("Expected StrSlice length = %d, got %d", len(expectedSlice), len(testStruct.StrSlice))
	} else {
		for i, item := range expectedSlice {
			if testStruct.StrSlice[i] != item {
				t.Errorf("Expected StrSlice[%d] = %s, got %s", i, item, testStruct.StrSlice[i])
			}
		}
	}

	// Field without env tag should be unchanged
	if testStruct.NoEnvTag != "" {
		t.Errorf("Expected NoEnvTag to be empty, got %s", testStruct.NoEnvTag)
	}
}

func TestProcessStructEnvErrors(t *testing.T) {
	// Test invalid values for different types
	tests := []struct {
		name        string
		envName     string
		envValue    string
		fieldType   string
		shouldError bool
	}{
		{
			name:        "Invalid int",
			envName:     "TEST_INT",
			envValue:    "not-an-int",
			fieldType:   "IntField",
			shouldError: true,
		},
		{
			name:        "Invalid bool",
			envName:     "TEST_BOOL",
			envValue:    "not-a-bool",
			fieldType:   "BoolField",
			shouldError: true,
		},
		{
			name:        "Invalid duration",
			envName:     "TEST_DURATION",
			envValue:    "not-a-duration",
			fieldType:   "DurField",
			shouldError: true,
		},
		{
			name:        "Invalid float",
			envName:     "TEST_FLOAT",
			envValue:    "not-a-float",
			fieldType:   "FloatField",
			shouldError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Set up test struct based on field type
			var testStruct interface{}
			switch tt.fieldType {
			case "IntField":
				testStruct = &struct {
					IntField int `env:"TEST_INT"`
				}{}
			case "BoolField":
				testStruct = &struct {
					BoolField bool `env:"TEST_BOOL"`
				}{}
			case "DurField":
				testStruct = &struct {
					DurField time.Duration `env:"TEST_DURATION"`
				}{}
			case "FloatField":
				testStruct = &struct {
					FloatField float64 `env:"TEST_FLOAT"`
				}{}
			}

			// Set environment variable
			os.Setenv(tt.envName, tt.envValue)
			defer os.Unsetenv(tt.envName)

			// Process environment variables
			err := processStructEnv(testStruct)

			// Check error
			if (err != nil) != tt.shouldError {
				t.Errorf("processStructEnv() error = %v, shouldError %v", err, tt.shouldError)
			}
		})
	}
}

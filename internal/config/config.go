package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type WorkerConfig struct {
	Env string 	   `yaml:"env" env:"APP_ENV" env-default:"local"`
	OrderDB 	   `yaml:"order_db"`
	LogConfig 	   `yaml:"log_config"`
	KafkaService   `yaml:"kafka-service"`
	Pipeline 	   `yaml:"pipeline"`
	MetricsServer  `yaml:"metrics_server"`
}

type OrderDB struct {
	Dsn 		   string `yaml:"dsn" env:"ORDER_DB_DSN"`
	MigrationsPath string `yaml:"migrations_path" env:"ORDER_DB_MIGRATIONS"`
}

type LogConfig struct {
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT" env-default:"json"`
}

type KafkaService struct {
	Host 			string `yaml:"host" env:"KAFKA_HOST" env-default:"localhost"`
	Port 			string `yaml:"port" env:"KAFKA_PORT" env-default:"9092"`
	GroupID 		string `yaml:"group_id" env:"KAFKA_GROUP_ID" env-default:"fulfillment-worker"`
	OrderTopic 		string `yaml:"order_topic" env-default:"order-events"`
	PaymentTopic 	string `yaml:"payment_topic" env-default:"payment-events"`
	DeadLetterTopic string `yaml:"dead_letter_topic" env-default:"fulfillment-dlq"`
}

type Pipeline struct {
	OrderWorkers 		 int 		   `yaml:"order_workers" env-default:"4"`
	PaymentWorkers 		 int 		   `yaml:"payment_workers" env-default:"4"`
	MaxAttempts 		 int 		   `yaml:"max_attempts" env-default:"5"`
	RetryBaseDelay 		 time.Duration `yaml:"retry_base_delay" env-default:"500ms"`
	RetryMaxDelay 		 time.Duration `yaml:"retry_max_delay" env-default:"30s"`
	LeaseTimeout 		 time.Duration `yaml:"lease_timeout" env-default:"1m"`
	LeaseSweepInterval 	 time.Duration `yaml:"lease_sweep_interval" env-default:"15s"`
	InFlightRequeueDelay time.Duration `yaml:"in_flight_requeue_delay" env-default:"100ms"`
}

type MetricsServer struct {
	Host string `yaml:"host" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"METRICS_PORT" env-default:"9100"`
}

func MustLoad() *WorkerConfig {

	var cfg WorkerConfig

	// Processing env config variable and file
	configPath := os.Getenv("ORDER_CONFIG_PATH")

	if configPath == "" {
		// env-only mode
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			log.Fatalf("failed to read config from env: %v", err)
		}
		return &cfg
	}

	if _, err := os.Stat(configPath); err != nil {
		log.Fatalf("failed to find config file: %v\n", err)
	}

	// YAML to struct object
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("failed to read config file: %v", err)
	}

	return &cfg
}

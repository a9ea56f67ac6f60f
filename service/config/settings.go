package config

import (
	"time"
)

// Settings is the single run configuration shared by the file and camera
// modes. Every field can come from the environment; the command line wins.
type Settings struct {
	Mode        string `env:"VS_MODE" envDefault:"0"`
	ModelPath   string `env:"VS_MODEL_PATH"`
	SourcePath  string `env:"VS_SOURCE_PATH"`
	CameraIndex int    `env:"VS_CAMERA_INDEX" envDefault:"0"`
	Recursive   bool   `env:"VS_RECURSIVE" envDefault:"false"`

	InputWidth          int     `env:"VS_INPUT_WIDTH" envDefault:"640"`
	InputHeight         int     `env:"VS_INPUT_HEIGHT" envDefault:"640"`
	ConfidenceThreshold float32 `env:"VS_CONFIDENCE_THRESHOLD" envDefault:"0.1"`
	IoUThreshold        float32 `env:"VS_IOU_THRESHOLD" envDefault:"0.45"`
	LabelsPath          string  `env:"VS_LABELS_PATH"`

	Stride      int           `env:"VS_STRIDE" envDefault:"0"`
	MaxDuration time.Duration `env:"VS_MAX_DURATION" envDefault:"0s"`

	OutputFile   string `env:"VS_OUTPUT_FILE" envDefault:"output.json"`
	InputFolder  string `env:"VS_INPUT_FOLDER" envDefault:"./settings"`
	DatabaseFile string `env:"VS_DATABASE_FILE"`

	LogLevel      string `env:"VS_LOG_LEVEL" envDefault:"info"`
	LogFile       string `env:"VS_LOG_FILE" envDefault:"vs-yolo.log"`
	LogMaxSizeMB  int    `env:"VS_LOG_MAX_SIZE_MB" envDefault:"10"`
	LogMaxBackups int    `env:"VS_LOG_MAX_BACKUPS" envDefault:"5"`
	LogMaxAgeDays int    `env:"VS_LOG_MAX_AGE_DAYS" envDefault:"7"`

	MetricsPort     int    `env:"VS_METRICS_PORT" envDefault:"0"`
	TracingEndpoint string `env:"VS_TRACING_ENDPOINT"`
	ShutdownSeconds int    `env:"VS_SHUTDOWN_SECONDS" envDefault:"5"`

	MinIOEndpoint  string `env:"VS_MINIO_ENDPOINT"`
	MinIOAccessKey string `env:"VS_MINIO_ACCESS_KEY" envDefault:"minioadmin"`
	MinIOSecretKey string `env:"VS_MINIO_SECRET_KEY" envDefault:"minioadmin"`
	MinIOUseSSL    bool   `env:"VS_MINIO_USE_SSL" envDefault:"false"`
	MinIOBucket    string `env:"VS_MINIO_BUCKET" envDefault:"detections"`

	RabbitMQURL        string `env:"VS_RABBITMQ_URL"`
	RabbitMQExchange   string `env:"VS_RABBITMQ_EXCHANGE" envDefault:"vs.detections"`
	RabbitMQRoutingKey string `env:"VS_RABBITMQ_ROUTING_KEY" envDefault:"run.completed"`
}

type settingsService struct {
	s Settings
}

func NewStatic(s Settings) IService {
	return &settingsService{
		s: s,
	}
}

func (svc *settingsService) GetModeMaxShutdownTime() int {
	return svc.s.ShutdownSeconds
}

func (svc *settingsService) GetInputFolder() string {
	return svc.s.InputFolder
}

func (svc *settingsService) GetOutputFile() string {
	return svc.s.OutputFile
}

func (svc *settingsService) GetDatabaseFile() string {
	return svc.s.DatabaseFile
}

func (svc *settingsService) GetMetricsPort() int {
	return svc.s.MetricsPort
}

func (svc *settingsService) GetTracingEndpoint() string {
	return svc.s.TracingEndpoint
}

func (svc *settingsService) GetDetectorParameters() DetectorParameters {
	return DetectorParameters{
		ModelPath:           svc.s.ModelPath,
		LabelsPath:          svc.s.LabelsPath,
		InputWidth:          svc.s.InputWidth,
		InputHeight:         svc.s.InputHeight,
		ConfidenceThreshold: svc.s.ConfidenceThreshold,
		IoUThreshold:        svc.s.IoUThreshold,
	}
}

func (svc *settingsService) GetSourceParameters() SourceParameters {
	return SourceParameters{
		Mode:        svc.s.Mode,
		Path:        svc.s.SourcePath,
		CameraIndex: svc.s.CameraIndex,
		Stride:      svc.s.Stride,
		MaxDuration: svc.s.MaxDuration,
		Recursive:   svc.s.Recursive,
	}
}

func (svc *settingsService) GetStorageParameters() StorageParameters {
	return StorageParameters{
		Endpoint:  svc.s.MinIOEndpoint,
		AccessKey: svc.s.MinIOAccessKey,
		SecretKey: svc.s.MinIOSecretKey,
		UseSSL:    svc.s.MinIOUseSSL,
		Bucket:    svc.s.MinIOBucket,
	}
}

func (svc *settingsService) GetPublisherParameters() PublisherParameters {
	return PublisherParameters{
		URL:        svc.s.RabbitMQURL,
		Exchange:   svc.s.RabbitMQExchange,
		RoutingKey: svc.s.RabbitMQRoutingKey,
	}
}

func (svc *settingsService) GetLogParameters() LogParameters {
	return LogParameters{
		Level:      svc.s.LogLevel,
		File:       svc.s.LogFile,
		MaxSizeMB:  svc.s.LogMaxSizeMB,
		MaxBackups: svc.s.LogMaxBackups,
		MaxAgeDays: svc.s.LogMaxAgeDays,
	}
}

package config

import "time"

type DetectorParameters struct {
	ModelPath           string
	LabelsPath          string
	InputWidth          int
	InputHeight         int
	ConfidenceThreshold float32
	IoUThreshold        float32
}

type SourceParameters struct {
	Mode        string
	Path        string
	CameraIndex int
	Stride      int           // 0 derives the stride from the source frame rate
	MaxDuration time.Duration // 0 runs until the source is exhausted
	Recursive   bool
}

type StorageParameters struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

type PublisherParameters struct {
	URL        string
	Exchange   string
	RoutingKey string
}

type LogParameters struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type IService interface {
	GetModeMaxShutdownTime() int
	GetInputFolder() string
	GetOutputFile() string
	GetDatabaseFile() string
	GetMetricsPort() int
	GetTracingEndpoint() string
	GetDetectorParameters() DetectorParameters
	GetSourceParameters() SourceParameters
	GetStorageParameters() StorageParameters
	GetPublisherParameters() PublisherParameters
	GetLogParameters() LogParameters
}

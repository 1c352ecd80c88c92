package config

type WorkerKeyStruct struct {
	AuditLogQueue     string
	NotificationQueue string
}

var WorkerKey = &WorkerKeyStruct{
	AuditLogQueue:     "audit_log_queue",
	NotificationQueue: "notification_queue",
}

package models

// All lists every persisted model in migration order
func All() []interface{} {
	return []interface{}{
		&User{},
		&ApiKey{},
		&UsageRecord{},
		&RequestLog{},
	}
}

func (User) TableName() string        { return "users" }
func (ApiKey) TableName() string      { return "api_keys" }
func (UsageRecord) TableName() string { return "usage_records" }
func (RequestLog) TableName() string  { return "request_logs" }

package events

// EventData is the interface that all event data types must implement
type EventData interface {
	EventType() EventType
}

// TransactionRecordedData contains data for TransactionRecorded events
type TransactionRecordedData struct {
	Symbol      string  `json:"symbol"`
	Broker      string  `json:"broker"`
	Kind        string  `json:"kind"`
	ID          int64   `json:"id"`
	Quantity    float64 `json:"quantity"`
	Price       float64 `json:"price"`
	NewQuantity float64 `json:"new_quantity"`
	NewAvgPrice float64 `json:"new_avg_price"`
	Replayed    bool    `json:"replayed"`
}

// EventType returns the event type for TransactionRecordedData
func (d *TransactionRecordedData) EventType() EventType {
	return TransactionRecorded
}

// TransactionDeletedData contains data for TransactionDeleted events
type TransactionDeletedData struct {
	Symbol         string `json:"symbol"`
	Broker         string `json:"broker"`
	ID             int64  `json:"id"`
	PositionClosed bool   `json:"position_closed"`
}

// EventType returns the event type for TransactionDeletedData
func (d *TransactionDeletedData) EventType() EventType {
	return TransactionDeleted
}

// InstrumentRemovedData contains data for InstrumentRemoved events
type InstrumentRemovedData struct {
	Symbol       string `json:"symbol"`
	Positions    int64  `json:"positions"`
	Transactions int64  `json:"transactions"`
}

// EventType returns the event type for InstrumentRemovedData
func (d *InstrumentRemovedData) EventType() EventType {
	return InstrumentRemoved
}

// TargetChangedData contains data for TargetChanged events
type TargetChangedData struct {
	TargetPrice *float64 `json:"target_price"`
	Symbol      string   `json:"symbol"`
	Updated     int64    `json:"updated"`
}

// EventType returns the event type for TargetChangedData
func (d *TargetChangedData) EventType() EventType {
	return TargetChanged
}

// CollectionChangedData is shared by watchlist and bibliography events
type CollectionChangedData struct {
	Type   EventType `json:"-"`
	Action string    `json:"action"` // added, removed
	Key    string    `json:"key"`
}

// EventType returns the configured event type
func (d *CollectionChangedData) EventType() EventType {
	return d.Type
}

// PriceCacheClearedData contains data for PriceCacheCleared events
type PriceCacheClearedData struct {
	Removed int64 `json:"removed"`
}

// EventType returns the event type for PriceCacheClearedData
func (d *PriceCacheClearedData) EventType() EventType {
	return PriceCacheCleared
}

// AlertReachedData contains data for AlertReached events
type AlertReachedData struct {
	Symbol string  `json:"symbol"`
	Source string  `json:"source"` // position, watchlist
	Target float64 `json:"target"`
	Price  float64 `json:"price"`
}

// EventType returns the event type for AlertReachedData
func (d *AlertReachedData) EventType() EventType {
	return AlertReached
}

// BackupCompletedData contains data for BackupCompleted events
type BackupCompletedData struct {
	Key       string `json:"key"`
	SizeBytes int64  `json:"size_bytes"`
}

// EventType returns the event type for BackupCompletedData
func (d *BackupCompletedData) EventType() EventType {
	return BackupCompleted
}

// JobStatusData contains data for job lifecycle events
type JobStatusData struct {
	Status   EventType `json:"-"`
	Job      string    `json:"job"`
	Error    string    `json:"error,omitempty"`
	Duration float64   `json:"duration_seconds,omitempty"`
}

// EventType returns the lifecycle status as event type
func (d *JobStatusData) EventType() EventType {
	return d.Status
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

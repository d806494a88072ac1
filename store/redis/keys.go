package redis

// Key prefixes for primary entity storage.
const (
	prefixEventType = "herald:evtype:"
	prefixEndpoint  = "herald:ep:"
	prefixAttempt   = "herald:att:"
	prefixSummary   = "herald:sum:"
	prefixDLQ       = "herald:dlq:"
)

// Key prefixes for unique indexes.
const (
	uniqueEventTypeName = "herald:u:evtype:name:"
)

// Key prefixes for sorted set indexes.
const (
	zEventTypeAll   = "herald:z:evtype:all"
	zEventTypeGroup = "herald:z:evtype:group:" // + group name
	zEndpointAll    = "herald:z:ep:all"
	zAttemptAll     = "herald:z:att:all"
	zAttemptEP      = "herald:z:att:ep:"  // + endpoint ID
	zAttemptDel     = "herald:z:att:del:" // + delivery UUID, scored by attempt number
	zSummaryAll     = "herald:z:sum:all"
	zDLQAll         = "herald:z:dlq:all"
	zDLQEndpoint    = "herald:z:dlq:ep:" // + endpoint ID
)

// Key prefixes for set indexes.
const (
	sEventTypeActive = "herald:s:evtype:active"
	sEndpointEnabled = "herald:s:ep:enabled"
)

// entityKey returns the primary key for an entity.
func entityKey(prefix, id string) string {
	return prefix + id
}

package metrics

// Default unit prices in USD. Modeled on public cloud list pricing for the
// managed equivalents of each component: a partitioned stream, per-request
// compute, a keyed store with provisioned units, object storage and a
// message gateway.
const (
	defaultStreamPutPerMillion  = 14.0
	defaultShardHour            = 0.015
	defaultComputePerMillion    = 0.20
	defaultComputeGBSecond      = 0.0000166667
	defaultStoreWritePerMillion = 1.25
	defaultStoreReadPerMillion  = 0.25
	defaultObjectPutPerThousand = 0.005
	defaultObjectGetPerThousand = 0.0004
	defaultGatewayMsgPerMillion = 1.0
	defaultComputeMemoryGB      = 0.125
)

// Prices holds the unit prices the cost model multiplies counts by.
type Prices struct {
	StreamPutPerMillion  float64 `json:"stream_put_per_million"`
	ShardHour            float64 `json:"shard_hour"`
	ComputePerMillion    float64 `json:"compute_per_million"`
	ComputeGBSecond      float64 `json:"compute_gb_second"`
	StoreWritePerMillion float64 `json:"store_write_per_million"`
	StoreReadPerMillion  float64 `json:"store_read_per_million"`
	ObjectPutPerThousand float64 `json:"object_put_per_thousand"`
	ObjectGetPerThousand float64 `json:"object_get_per_thousand"`
	GatewayMsgPerMillion float64 `json:"gateway_msg_per_million"`
	ComputeMemoryGB      float64 `json:"compute_memory_gb"`
}

// DefaultPrices returns the built-in price sheet.
func DefaultPrices() Prices {
	return Prices{
		StreamPutPerMillion:  defaultStreamPutPerMillion,
		ShardHour:            defaultShardHour,
		ComputePerMillion:    defaultComputePerMillion,
		ComputeGBSecond:      defaultComputeGBSecond,
		StoreWritePerMillion: defaultStoreWritePerMillion,
		StoreReadPerMillion:  defaultStoreReadPerMillion,
		ObjectPutPerThousand: defaultObjectPutPerThousand,
		ObjectGetPerThousand: defaultObjectGetPerThousand,
		GatewayMsgPerMillion: defaultGatewayMsgPerMillion,
		ComputeMemoryGB:      defaultComputeMemoryGB,
	}
}

// costCounts accumulates billable unit counts. Guarded by the owning
// Collector's mutex.
type costCounts struct {
	streamPuts      int64
	shardHours      float64
	invocations     int64
	computeSeconds  float64
	storeWrites     int64
	storeReads      int64
	objectPuts      int64
	objectGets      int64
	gatewayMessages int64
}

// CostSnapshot is the priced view of the accumulated unit counts.
type CostSnapshot struct {
	StreamPuts      int64   `json:"stream_puts"`
	ShardHours      float64 `json:"shard_hours"`
	Invocations     int64   `json:"invocations"`
	ComputeSeconds  float64 `json:"compute_seconds"`
	StoreWrites     int64   `json:"store_writes"`
	StoreReads      int64   `json:"store_reads"`
	ObjectPuts      int64   `json:"object_puts"`
	ObjectGets      int64   `json:"object_gets"`
	GatewayMessages int64   `json:"gateway_messages"`

	StreamUSD  float64 `json:"stream_usd"`
	ComputeUSD float64 `json:"compute_usd"`
	StoreUSD   float64 `json:"store_usd"`
	ObjectUSD  float64 `json:"object_usd"`
	GatewayUSD float64 `json:"gateway_usd"`
	TotalUSD   float64 `json:"total_usd"`

	CostPerEventUSD float64 `json:"cost_per_event_usd"`
}

func (cc costCounts) snapshot(p Prices) CostSnapshot {
	s := CostSnapshot{
		StreamPuts:      cc.streamPuts,
		ShardHours:      cc.shardHours,
		Invocations:     cc.invocations,
		ComputeSeconds:  cc.computeSeconds,
		StoreWrites:     cc.storeWrites,
		StoreReads:      cc.storeReads,
		ObjectPuts:      cc.objectPuts,
		ObjectGets:      cc.objectGets,
		GatewayMessages: cc.gatewayMessages,
	}

	s.StreamUSD = float64(cc.streamPuts)/1e6*p.StreamPutPerMillion + cc.shardHours*p.ShardHour
	s.ComputeUSD = float64(cc.invocations)/1e6*p.ComputePerMillion +
		cc.computeSeconds*p.ComputeMemoryGB*p.ComputeGBSecond
	s.StoreUSD = float64(cc.storeWrites)/1e6*p.StoreWritePerMillion +
		float64(cc.storeReads)/1e6*p.StoreReadPerMillion
	s.ObjectUSD = float64(cc.objectPuts)/1e3*p.ObjectPutPerThousand +
		float64(cc.objectGets)/1e3*p.ObjectGetPerThousand
	s.GatewayUSD = float64(cc.gatewayMessages) / 1e6 * p.GatewayMsgPerMillion
	s.TotalUSD = s.StreamUSD + s.ComputeUSD + s.StoreUSD + s.ObjectUSD + s.GatewayUSD

	if cc.streamPuts > 0 {
		s.CostPerEventUSD = s.TotalUSD / float64(cc.streamPuts)
	}
	return s
}

// AddStreamPuts records n stream put units.
func (c *Collector) AddStreamPuts(n int) {
	c.mu.Lock()
	c.cost.streamPuts += int64(n)
	c.mu.Unlock()
}

// AddShardHours records fractional shard hours of stream capacity.
func (c *Collector) AddShardHours(h float64) {
	c.mu.Lock()
	c.cost.shardHours += h
	c.mu.Unlock()
}

// AddInvocation records one compute invocation of the given duration.
func (c *Collector) AddInvocation(seconds float64) {
	c.mu.Lock()
	c.cost.invocations++
	c.cost.computeSeconds += seconds
	c.mu.Unlock()
}

// AddStoreWrites records n keyed-store write units.
func (c *Collector) AddStoreWrites(n int) {
	c.mu.Lock()
	c.cost.storeWrites += int64(n)
	c.mu.Unlock()
}

// AddStoreReads records n keyed-store read units.
func (c *Collector) AddStoreReads(n int) {
	c.mu.Lock()
	c.cost.storeReads += int64(n)
	c.mu.Unlock()
}

// AddObjectPuts records n archive object writes.
func (c *Collector) AddObjectPuts(n int) {
	c.mu.Lock()
	c.cost.objectPuts += int64(n)
	c.mu.Unlock()
}

// AddObjectGets records n archive object reads.
func (c *Collector) AddObjectGets(n int) {
	c.mu.Lock()
	c.cost.objectGets += int64(n)
	c.mu.Unlock()
}

// AddGatewayMessages records n delivered gateway messages.
func (c *Collector) AddGatewayMessages(n int) {
	c.mu.Lock()
	c.cost.gatewayMessages += int64(n)
	c.mu.Unlock()
}

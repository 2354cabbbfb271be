package market

// Market identifies a trading venue: the market token naming the venue,
// the priced index token, and the two collateral-eligible tokens backing
// the pool. Pure static data, no behavior.
type Market struct {
	MarketToken string
	IndexToken  string
	LongToken   string
	ShortToken  string
}

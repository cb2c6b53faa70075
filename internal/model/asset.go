package model

// AssetClass groups assets for allocation and precision defaults.
type AssetClass string

const (
	AssetClassCrypto    AssetClass = "CRYPTO"
	AssetClassForex     AssetClass = "FOREX"
	AssetClassCommodity AssetClass = "COMMODITY"
	AssetClassFiat      AssetClass = "FIAT"
	AssetClassOther     AssetClass = "OTHER"
)

// MinCryptoScale is the lowest number of fractional digits used for crypto-class assets.
const MinCryptoScale int32 = 8

// Asset describes a tradable instrument. Precision is the number of fractional
// digits used when dividing amounts for this asset; zero means the class default.
type Asset struct {
	ID        string     `json:"id"`
	Symbol    string     `json:"symbol"`
	Name      string     `json:"name"`
	Class     AssetClass `json:"class"`
	Precision int32      `json:"precision"`
}

package analytics

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/wallet-portfolio/internal/models"
	"github.com/wallet-portfolio/internal/types"
)

func TestInferProvenanceNative(t *testing.T) {
	p := merged("ETH", types.ChainEthereum, false, "3000", "0")

	prov := InferProvenance(p)
	assert.Equal(t, SourceNative, prov.Source)
	assert.Equal(t, ConfidenceHigh, prov.Confidence)
}

func TestInferProvenanceZeroCostToken(t *testing.T) {
	p := merged("USDC", types.ChainEthereum, true, "1000", "1000")

	prov := InferProvenance(p)
	assert.Equal(t, SourceAirdropOrTransfer, prov.Source)
	assert.Equal(t, ConfidenceMedium, prov.Confidence)
}

func TestInferProvenancePurchasedToken(t *testing.T) {
	p := merged("UNI", types.ChainEthereum, true, "1000", "200")
	p.Invested = decimal.NewFromInt(800)

	prov := InferProvenance(p)
	assert.Equal(t, SourceSwap, prov.Source)
	assert.Equal(t, ConfidenceHigh, prov.Confidence)
}

func TestAnnotateProvenanceStampsEveryPosition(t *testing.T) {
	bought := merged("UNI", types.ChainEthereum, true, "1000", "200")
	bought.Invested = decimal.NewFromInt(800)
	portfolio := []models.MergedPosition{
		merged("ETH", types.ChainEthereum, false, "3000", "0"),
		merged("USDC", types.ChainPolygon, true, "1000", "1000"),
		bought,
	}

	AnnotateProvenance(portfolio)

	assert.Equal(t, SourceNative, portfolio[0].Provenance.Source)
	assert.Equal(t, SourceAirdropOrTransfer, portfolio[1].Provenance.Source)
	assert.Equal(t, SourceSwap, portfolio[2].Provenance.Source)
}

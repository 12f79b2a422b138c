package dataprovider_test

import (
	"testing"

	"github.com/jrsteele09/go-storefront/dataprovider"
	"github.com/stretchr/testify/require"
)

func TestFilter_Matches(t *testing.T) {
	row := dataprovider.Row{"id": "p1", "role": "admin", "stock": 3}

	require.True(t, dataprovider.Filter{}.Matches(row))
	require.True(t, dataprovider.Where("id", "p1").Matches(row))
	require.True(t, dataprovider.Where("id", "p1").Eq("stock", 3).Matches(row))
	require.False(t, dataprovider.Where("id", "p2").Matches(row))
	require.False(t, dataprovider.Where("missing", "x").Matches(row))
}

func TestFilter_EqDoesNotAlias(t *testing.T) {
	base := dataprovider.Where("a", 1)
	left := base.Eq("b", 2)
	right := base.Eq("c", 3)

	require.Equal(t, "a=1,b=2", left.String())
	require.Equal(t, "a=1,c=3", right.String())
	require.Len(t, base, 1)
}

func TestRow_String(t *testing.T) {
	row := dataprovider.Row{"name": "Mug", "price": 3}
	require.Equal(t, "Mug", row.String("name"))
	require.Equal(t, "", row.String("price"))
	require.Equal(t, "", row.String("missing"))
}

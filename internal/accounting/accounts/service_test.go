package accounts

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestBuildTreeNestsByParentCode(t *testing.T) {
	accounts := []Account{
		{Code: "1000", Name: "Assets", Type: AccountTypeAsset},
		{Code: "1100", Name: "Cash & Bank", Type: AccountTypeAsset, ParentCode: strPtr("1000")},
		{Code: "1200", Name: "Accounts Receivable", Type: AccountTypeAsset, ParentCode: strPtr("1000")},
		{Code: "4000", Name: "Revenue", Type: AccountTypeRevenue},
	}
	tree := BuildTree(accounts)
	require.Len(t, tree, 2)
	require.Equal(t, "1000", tree[0].Code)
	require.Len(t, tree[0].Children, 2)
	require.Equal(t, "1100", tree[0].Children[0].Code)
	require.Empty(t, tree[1].Children)
}

func TestBuildTreePromotesOrphans(t *testing.T) {
	accounts := []Account{
		{Code: "1100", Name: "Cash & Bank", Type: AccountTypeAsset, ParentCode: strPtr("9999")},
	}
	tree := BuildTree(accounts)
	require.Len(t, tree, 1)
	require.Equal(t, "1100", tree[0].Code)
}

func TestValidType(t *testing.T) {
	require.True(t, ValidType(AccountTypeLiability))
	require.False(t, ValidType(AccountType("CONTRA")))
}

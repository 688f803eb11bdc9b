package archive

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func entryFor(basename string, version int, columns ...string) SchemaEntry {
	return SchemaEntry{
		Fingerprint: FingerprintColumns(columns),
		Basename:    basename,
		Version:     version,
		TableName:   PhysicalTableName(basename, version),
		Columns:     columns,
	}
}

func TestDecide_FirstShapeForBasename(t *testing.T) {
	columns := []string{"id", "title"}
	d := Decide(nil, FingerprintColumns(columns), columns)
	require.Equal(t, DecisionNewVersion, d.Kind)
	require.Equal(t, 1, d.Version)
}

func TestDecide_ExactFingerprintReuses(t *testing.T) {
	entries := []SchemaEntry{entryFor("conv", 1, "id", "title")}
	d := Decide(entries, FingerprintColumns([]string{"title", "id"}), []string{"title", "id"})
	require.Equal(t, DecisionReuse, d.Kind)
	require.Equal(t, "conv", d.Entry.TableName)
}

func TestDecide_StrictSupersetWidens(t *testing.T) {
	entries := []SchemaEntry{entryFor("conv", 1, "id", "title")}
	columns := []string{"id", "title", "status"}
	d := Decide(entries, FingerprintColumns(columns), columns)
	require.Equal(t, DecisionWiden, d.Kind)
	require.Equal(t, "conv", d.Entry.TableName)
	require.Equal(t, []string{"status"}, d.AddColumns)
}

func TestDecide_IncompatibleShapeVersions(t *testing.T) {
	entries := []SchemaEntry{entryFor("conv", 1, "id", "title")}
	columns := []string{"id", "body"}
	d := Decide(entries, FingerprintColumns(columns), columns)
	require.Equal(t, DecisionNewVersion, d.Kind)
	require.Equal(t, 2, d.Version)
}

func TestDecide_SubsetIsNotAWidening(t *testing.T) {
	// Removed columns are incompatible, not a reverse widening.
	entries := []SchemaEntry{entryFor("conv", 1, "id", "title", "status")}
	columns := []string{"id", "title"}
	d := Decide(entries, FingerprintColumns(columns), columns)
	require.Equal(t, DecisionNewVersion, d.Kind)
	require.Equal(t, 2, d.Version)
}

func TestDecide_PrefersNewestVersionAsWideningTarget(t *testing.T) {
	entries := []SchemaEntry{
		entryFor("conv", 1, "id", "title"),
		entryFor("conv", 2, "id", "body"),
	}
	columns := []string{"id", "body", "status"}
	d := Decide(entries, FingerprintColumns(columns), columns)
	require.Equal(t, DecisionWiden, d.Kind)
	require.Equal(t, "conv_v2", d.Entry.TableName)
	require.Equal(t, []string{"status"}, d.AddColumns)
}

func TestDecide_NonComparableOverlapVersions(t *testing.T) {
	entries := []SchemaEntry{entryFor("conv", 1, "id", "title", "status")}
	// Shares id and title but drops status: neither subset nor superset.
	columns := []string{"id", "title", "body"}
	d := Decide(entries, FingerprintColumns(columns), columns)
	require.Equal(t, DecisionNewVersion, d.Kind)
	require.Equal(t, 2, d.Version)
}

func TestPhysicalTableName(t *testing.T) {
	require.Equal(t, "conv", PhysicalTableName("conv", 1))
	require.Equal(t, "conv_v2", PhysicalTableName("conv", 2))
	require.Equal(t, "conv_v10", PhysicalTableName("conv", 10))
}

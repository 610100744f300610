package lox

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_SetGet(t *testing.T) {
	vm := NewVM(nil)
	var tbl table

	key := vm.copyString("answer")
	assert.True(t, tbl.set(key, numberValue(42)))

	value, ok := tbl.get(key)
	require.True(t, ok)
	assert.Equal(t, 42.0, value.asNumber())

	// overwriting is not a new key
	assert.False(t, tbl.set(key, numberValue(43)))
	value, _ = tbl.get(key)
	assert.Equal(t, 43.0, value.asNumber())
}

func TestTable_MissingKey(t *testing.T) {
	vm := NewVM(nil)
	var tbl table

	_, ok := tbl.get(vm.copyString("nope"))
	assert.False(t, ok)
}

func TestTable_Delete(t *testing.T) {
	vm := NewVM(nil)
	var tbl table

	a := vm.copyString("a")
	b := vm.copyString("b")
	c := vm.copyString("c")
	tbl.set(a, numberValue(1))
	tbl.set(b, numberValue(2))
	tbl.set(c, numberValue(3))

	countBefore := tbl.count
	require.True(t, tbl.delete(b))
	assert.False(t, tbl.delete(b))

	// the tombstone keeps probe chains intact and stays in count
	assert.Equal(t, countBefore, tbl.count)
	_, ok := tbl.get(b)
	assert.False(t, ok)
	value, ok := tbl.get(c)
	require.True(t, ok)
	assert.Equal(t, 3.0, value.asNumber())
}

func TestTable_Grows(t *testing.T) {
	vm := NewVM(nil)
	var tbl table

	keys := make([]*stringObj, 0, 100)
	for i := 0; i < 100; i++ {
		key := vm.copyString(fmt.Sprintf("key%d", i))
		keys = append(keys, key)
		tbl.set(key, numberValue(float64(i)))
	}

	for i, key := range keys {
		value, ok := tbl.get(key)
		require.True(t, ok, "key%d", i)
		assert.Equal(t, float64(i), value.asNumber())
	}
}

func TestTable_AddAll(t *testing.T) {
	vm := NewVM(nil)
	var from, to table

	from.set(vm.copyString("x"), numberValue(1))
	from.set(vm.copyString("y"), numberValue(2))
	to.set(vm.copyString("y"), numberValue(99))

	from.addAll(&to)

	value, _ := to.get(vm.copyString("x"))
	assert.Equal(t, 1.0, value.asNumber())
	value, _ = to.get(vm.copyString("y"))
	assert.Equal(t, 2.0, value.asNumber())
}

func TestTable_FindString(t *testing.T) {
	vm := NewVM(nil)

	s := vm.copyString("interned")
	found := vm.strings.findString("interned", hashString("interned"))
	assert.Same(t, s, found)

	assert.Nil(t, vm.strings.findString("absent", hashString("absent")))
}

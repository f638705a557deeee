package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk(t *testing.T) {
	buttons := []Button{Data("1", "a"), Data("2", "b"), Data("3", "c")}
	rows := Chunk(buttons, 2)
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], 2)
	assert.Len(t, rows[1], 1)
	assert.Len(t, Chunk(buttons, 0), 3)
}

func TestMarkupInline(t *testing.T) {
	m := Markup(InlineRows([]Button{Data("➕", "cart_inc_1"), Data("➖", "cart_dec_1")}))
	require.NotNil(t, m)
	require.Len(t, m.InlineKeyboard, 1)
	assert.Equal(t, "cart_inc_1", m.InlineKeyboard[0][0].Data)
	assert.Empty(t, m.ReplyKeyboard)
}

func TestMarkupReplyWithContact(t *testing.T) {
	kb := &Keyboard{Rows: [][]Button{{Contact("📱 Share")}, {{Text: "Skip"}}}}
	m := Markup(kb)
	require.NotNil(t, m)
	assert.True(t, m.ResizeKeyboard)
	assert.True(t, m.ReplyKeyboard[0][0].Contact)
	assert.Equal(t, "Skip", m.ReplyKeyboard[1][0].Text)
}

func TestMarkupEmptyAndRemove(t *testing.T) {
	assert.Nil(t, Markup(nil))
	assert.Nil(t, Markup(&Keyboard{}))
	assert.True(t, Markup(RemoveKeyboard()).RemoveKeyboard)
}

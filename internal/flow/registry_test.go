package flow

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/shopbot/internal/reply"
	"github.com/m3rciful/shopbot/internal/shop"
)

func nopHandler(context.Context, *Request) ([]reply.Reply, error) { return nil, nil }

func TestRegistryCommands(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCommand("/orders", Command{Handler: nopHandler, Description: "Orders", Aliases: []string{"myorders"}}))
	require.NoError(t, reg.RegisterCommand("admin", Command{Handler: nopHandler, Description: "Stats", AdminOnly: true}))
	require.NoError(t, reg.RegisterCommand("order", Command{Handler: nopHandler, Description: "Order", Hidden: true}))

	assert.Error(t, reg.RegisterCommand("orders", Command{Handler: nopHandler, Description: "again"}))
	assert.Error(t, reg.RegisterCommand("empty", Command{Handler: nopHandler}))

	name, _, ok := reg.LookupCommand("myorders")
	require.True(t, ok)
	assert.Equal(t, "orders", name)

	assert.Equal(t, []BotCommand{{Text: "/orders", Description: "Orders"}}, reg.ListCommands(true))
	assert.Len(t, reg.ListCommands(false), 3)
}

func TestRegistryRejectsUnderscoreNames(t *testing.T) {
	reg := NewRegistry()
	assert.Error(t, reg.RegisterCommand("my_orders", Command{Handler: nopHandler, Description: "Orders"}))
	assert.Error(t, reg.RegisterCommand("orders", Command{Handler: nopHandler, Description: "Orders", Aliases: []string{"my_orders"}}))

	_, _, ok := reg.LookupCommand("orders")
	assert.False(t, ok, "a rejected registration leaves no trace")
}

func TestCommandAliasesAreReachable(t *testing.T) {
	h := newHarness(t)
	h.register(customer, false)

	direct := texts(h.text(customer, "/orders"))
	viaAlias := texts(h.text(customer, "/myorders"))
	require.NotEmpty(t, direct)
	assert.Equal(t, direct, viaAlias)
}

func TestRegistryCallbacksFeedPrefixTable(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCallback("rate_", nopHandler))
	require.NoError(t, reg.RegisterCallback("rate_product_", nopHandler))
	require.NoError(t, reg.RegisterCallback("noop", nopHandler))
	assert.Error(t, reg.RegisterCallback("noop", nopHandler))

	prefix, rest, ok := reg.Prefixes().Match("rate_product_7")
	require.True(t, ok)
	assert.Equal(t, "rate_product_", prefix)
	assert.Equal(t, "7", rest)

	_, _, ok = reg.Prefixes().Match("noop_1")
	assert.False(t, ok, "exact keys do not match longer data")
	assert.Equal(t, []string{"noop", "rate_", "rate_product_"}, reg.ListCallbacks())
}

func TestEngineCommandMenuHidesAdminCommands(t *testing.T) {
	h := newHarness(t)
	for _, c := range h.engine.Registry().ListCommands(true) {
		assert.NotContains(t, []string{"/admin", "/setstatus", "/reload", "/order", "/promo"}, c.Text)
	}
}

type codedError struct{}

func (codedError) Error() string { return "coded" }
func (codedError) Code() string  { return "rate limited" }

type plainError struct{}

func (*plainError) Error() string { return "plain" }

func TestDeriveErrorCode(t *testing.T) {
	assert.Equal(t, "", deriveErrorCode(nil))
	assert.Equal(t, "RATE_LIMITED", deriveErrorCode(codedError{}))
	assert.Equal(t, "NOT_FOUND", deriveErrorCode(fmt.Errorf("load: %w", shop.NotFound("order", 1))))
	assert.Equal(t, "TRANSIENT_IO", deriveErrorCode(shop.Transient("q", errors.New("eof"))))
	assert.Equal(t, "PLAINERROR", deriveErrorCode(&plainError{}))
}

func TestNormalizeHandlerName(t *testing.T) {
	assert.Equal(t, "cart_inc", normalizeHandlerName("cart_inc_"))
	assert.Equal(t, "orders", normalizeHandlerName("/Orders"))
	assert.Equal(t, "unknown", normalizeHandlerName(" "))
}

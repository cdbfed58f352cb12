package conn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	testCases := []struct {
		desc string
		opt  Option
		want string
	}{
		{"defaults", Option{}, "postgres://localhost:5432?sslmode=disable"},
		{"full", Option{Host: "db", Port: 6543, User: "bot", Password: "p@ss", Database: "trading", SSLMode: "require"}, "postgres://bot:p%40ss@db:6543/trading?sslmode=require"},
		{"user only", Option{User: "bot", Database: "trading"}, "postgres://bot@localhost:5432/trading?sslmode=disable"},
		{"params", Option{Params: map[string]string{"application_name": "trader", "": "skip"}}, "postgres://localhost:5432?application_name=trader&sslmode=disable"},
		{"conn string wins", Option{Host: "ignored", ConnString: "host=x user=y"}, "host=x user=y"},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			dsn, err := tc.opt.DSN()
			require.NoError(t, err)
			assert.Equal(t, tc.want, dsn)
		})
	}
}

func TestDSNInvalidPort(t *testing.T) {
	_, err := Option{Port: 70000}.DSN()
	assert.Error(t, err)
}

func TestNilClient(t *testing.T) {
	var c *Client
	assert.Nil(t, c.DB())
	assert.NoError(t, c.Close())
}

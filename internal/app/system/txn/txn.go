// Package txn runs a function inside a MongoDB multi-document transaction.
//
// Transactions require a replica set (or sharded cluster). There is no
// non-transactional fallback: callers that need all-or-nothing writes get
// ErrUnsupported instead of a silently partial write.
package txn

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// ErrUnsupported is returned when the deployment cannot run transactions.
var ErrUnsupported = errors.New("txn: transactions are not supported by this deployment")

// Run executes fn in a transaction on a fresh session. The driver retries
// fn on TransientTransactionError, so fn must be safe to re-run: it should
// only issue writes, never act on values read outside the transaction.
func Run(ctx context.Context, client *mongo.Client, fn func(sc mongo.SessionContext) error) error {
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	opts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	}, opts)
	if err != nil {
		if IsNotSupported(err) {
			return fmt.Errorf("%w: %v", ErrUnsupported, err)
		}
		return err
	}
	return nil
}

// notSupportedCodes are server codes seen when transactions or sessions
// are unavailable (standalone server, old versions).
var notSupportedCodes = map[int32]bool{
	20:  true, // IllegalOperation
	51:  true,
	263: true, // OperationNotSupportedInTransaction
}

var notSupportedKeywords = []string{
	"transaction",
	"replica set",
	"session",
	"not supported",
	"illegal operation",
}

// IsNotSupported reports whether err indicates the server cannot run
// transactions. Command errors are matched by code; anything else needs at
// least two keyword hits in its message.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		return notSupportedCodes[ce.Code]
	}
	msg := strings.ToLower(err.Error())
	hits := 0
	for _, kw := range notSupportedKeywords {
		if strings.Contains(msg, kw) {
			hits++
		}
	}
	return hits >= 2
}

// helloReply is the part of the hello command reply that decides
// transaction support.
type helloReply struct {
	SetName string `bson:"setName"`
	Msg     string `bson:"msg"`
}

// supports reports whether a hello reply comes from a replica set member
// or a mongos router.
func (h helloReply) supports() bool {
	return h.SetName != "" || h.Msg == "isdbgrid"
}

// CheckSupported runs hello and returns ErrUnsupported unless the server
// is a replica set member or a mongos, so a standalone server fails at
// startup instead of at the first write.
func CheckSupported(ctx context.Context, client *mongo.Client) error {
	var reply helloReply
	err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&reply)
	if err != nil {
		return fmt.Errorf("hello: %w", err)
	}
	if !reply.supports() {
		return fmt.Errorf("%w: server is standalone; start it as a replica set", ErrUnsupported)
	}
	return nil
}


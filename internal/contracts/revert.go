package contracts

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// ErrStakeNotFound means the token is not staked under the queried incentive.
var ErrStakeNotFound = errors.New("stake not registered under incentive")

const stakeNotFoundReason = "stake does not exist"

// IsStakeNotFound recognises the getRewardInfo revert for a token that is not
// staked in the incentive, from either revert data or the node's message.
func IsStakeNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrStakeNotFound) {
		return true
	}
	if reason, ok := RevertReason(err); ok && strings.Contains(reason, stakeNotFoundReason) {
		return true
	}
	return strings.Contains(err.Error(), stakeNotFoundReason)
}

// RevertReason extracts an Error(string) revert reason carried by an RPC error.
func RevertReason(err error) (string, bool) {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return "", false
	}

	var raw []byte
	switch data := dataErr.ErrorData().(type) {
	case string:
		decoded, decodeErr := hexutil.Decode(data)
		if decodeErr != nil {
			return "", false
		}
		raw = decoded
	case []byte:
		raw = data
	default:
		return "", false
	}

	reason, unpackErr := abi.UnpackRevert(raw)
	if unpackErr != nil {
		return "", false
	}
	return reason, true
}

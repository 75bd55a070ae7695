package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// FaucetABI lists the faucet token functions the backend calls.
const FaucetABI = `[
	{"type":"function","stateMutability":"nonpayable","name":"claimTokens","inputs":[],"outputs":[]},
	{"type":"function","stateMutability":"view","name":"hasAddressClaimed","inputs":[{"type":"address","name":"account"}],"outputs":[{"type":"bool","name":""}]},
	{"type":"function","stateMutability":"view","name":"balanceOf","inputs":[{"type":"address","name":"account"}],"outputs":[{"type":"uint256","name":""}]},
	{"type":"function","stateMutability":"view","name":"getFaucetUsers","inputs":[],"outputs":[{"type":"address[]","name":""}]},
	{"type":"function","stateMutability":"view","name":"getFaucetAmount","inputs":[],"outputs":[{"type":"uint256","name":""}]},
	{"type":"function","stateMutability":"view","name":"decimals","inputs":[],"outputs":[{"type":"uint8","name":""}]}
]`

// MulticallABI is the aggregate3 entry point of Multicall3.
const MulticallABI = `[
	{"type":"function","stateMutability":"payable","name":"aggregate3",
	 "inputs":[{"name":"calls","type":"tuple[]","components":[
		{"name":"target","type":"address"},
		{"name":"allowFailure","type":"bool"},
		{"name":"callData","type":"bytes"}]}],
	 "outputs":[{"name":"returnData","type":"tuple[]","components":[
		{"name":"success","type":"bool"},
		{"name":"returnData","type":"bytes"}]}]}
]`

// DefaultMulticallAddress is where Multicall3 is deployed on most EVM chains.
var DefaultMulticallAddress = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")

// Call3 is one aggregate3 sub-call
type Call3 struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

// Result is one aggregate3 sub-call outcome
type Result struct {
	Success    bool
	ReturnData []byte
}

var (
	faucetABI    = mustParse(FaucetABI)
	multicallABI = mustParse(MulticallABI)
)

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

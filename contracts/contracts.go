/*
Package contracts provides the distributor contract interface and the loader
for its compiled artifact.

The ABI is compiled into the binary. The bytecode is not, it is produced by
compiling Distributor.sol and read from an artifact file:

  solc --combined-json abi,bin,bin-runtime Distributor.sol

Both the solc combined JSON output and a flat
  {"abi": [...], "bytecode": "<hex>", "deployed": "<hex>"}
document are accepted.
*/
package contracts

import (
	_ "embed"
	"io/ioutil"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/iov-one/fundtool/errors"
	jsoniter "github.com/json-iterator/go"
)

//go:embed distributor.abi.json
var distributorABI string

// Method names of the distributor contract.
const (
	MethodDistribute      = "distribute"
	MethodDistributeEqual = "distributeEqual"
	MethodDistributeEther = "distributeEther"
	MethodDistributeGwei  = "distributeGwei"
)

// DistributorABI returns the parsed distributor contract interface.
func DistributorABI() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(distributorABI))
	if err != nil {
		// The ABI is compiled in, this can only be a programming error.
		panic("invalid distributor ABI: " + err.Error())
	}
	return parsed
}

// Artifact is a compiled contract.
type Artifact struct {
	// Bytecode is the contract creation code.
	Bytecode []byte
	// Deployed is the runtime code, as returned by eth_getCode once the
	// contract is deployed.
	Deployed []byte
}

// LoadArtifact reads a compiled contract from given file. When the file is a
// solc combined JSON output, the contract named name is used.
func LoadArtifact(path, name string) (*Artifact, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "read artifact: %s", err)
	}
	return ParseArtifact(raw, name)
}

// ParseArtifact decodes a compiled contract.
func ParseArtifact(raw []byte, name string) (*Artifact, error) {
	var doc struct {
		Bytecode string `json:"bytecode"`
		Deployed string `json:"deployed"`
		// solc --combined-json layout
		Contracts map[string]struct {
			Bin        string `json:"bin"`
			BinRuntime string `json:"bin-runtime"`
		} `json:"contracts"`
	}
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "decode artifact: %s", err)
	}

	creation, runtime := doc.Bytecode, doc.Deployed
	if creation == "" {
		for key, c := range doc.Contracts {
			// Keys are "<source file>:<contract name>".
			if key == name || strings.HasSuffix(key, ":"+name) {
				creation, runtime = c.Bin, c.BinRuntime
				break
			}
		}
	}
	if creation == "" || runtime == "" {
		return nil, errors.Wrapf(errors.ErrEmpty, "no bytecode for contract %q", name)
	}

	var (
		a   Artifact
		err error
	)
	if a.Bytecode, err = decodeHex(creation); err != nil {
		return nil, errors.Wrap(err, "bytecode")
	}
	if a.Deployed, err = decodeHex(runtime); err != nil {
		return nil, errors.Wrap(err, "deployed bytecode")
	}
	return &a, nil
}

func decodeHex(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	return b, nil
}

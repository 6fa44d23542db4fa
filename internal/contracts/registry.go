// Package contracts holds the ABI and address of every contract the
// orchestrator calls. A Registry is built once at startup and only read
// afterwards.
package contracts

import (
	"bytes"
	"contract-orchestrator/internal/config"
	"contract-orchestrator/internal/models"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

//go:embed abi/*.json
var embeddedABIs embed.FS

// hardhat artifact locations relative to ARTIFACTS_DIR
var artifactPaths = map[models.ContractName]string{
	models.Wallet:   "contracts/Wallet.sol/MultiSignPaymentWallet.json",
	models.Payments: "contracts/Payments.sol/Payments.json",
	models.Product:  "contracts/Product.sol/ProductContract.json",
	models.NFT:      "contracts/NFT.sol/NFT.json",
}

type Contract struct {
	Name    models.ContractName
	Address common.Address
	ABI     abi.ABI
}

type Registry struct {
	contracts map[models.ContractName]*Contract
}

// registryFile is the optional YAML override:
//
//	contracts:
//	  wallet:
//	    address: "0x..."
//	    artifact: ./artifacts/contracts/Wallet.sol/MultiSignPaymentWallet.json
type registryFile struct {
	Contracts map[string]struct {
		Address  string `yaml:"address"`
		Artifact string `yaml:"artifact"`
	} `yaml:"contracts"`
}

// Load builds the registry from embedded ABIs, then hardhat artifacts in
// cfg.ArtifactsDir, then the YAML file in cfg.File, later sources winning.
// Contracts without an address are left out.
func Load(cfg config.ContractsConfig) (*Registry, error) {
	addresses := make(map[models.ContractName]string, len(cfg.Addresses))
	for name, addr := range cfg.Addresses {
		addresses[name] = addr
	}
	artifacts := make(map[models.ContractName]string)
	if cfg.ArtifactsDir != "" {
		for name, rel := range artifactPaths {
			path := filepath.Join(cfg.ArtifactsDir, rel)
			if _, err := os.Stat(path); err == nil {
				artifacts[name] = path
			}
		}
	}

	if cfg.File != "" {
		raw, err := os.ReadFile(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("failed to read contracts file: %w", err)
		}
		var file registryFile
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return nil, fmt.Errorf("failed to parse contracts file: %w", err)
		}
		for key, entry := range file.Contracts {
			name := models.ContractName(key)
			if _, ok := artifactPaths[name]; !ok {
				return nil, fmt.Errorf("contracts file: unknown contract %q", key)
			}
			if entry.Address != "" {
				addresses[name] = entry.Address
			}
			if entry.Artifact != "" {
				artifacts[name] = entry.Artifact
			}
		}
	}

	r := NewRegistry()
	for _, name := range models.AllContracts {
		addr := addresses[name]
		if addr == "" {
			continue
		}
		parsed, err := models.ParseAddress(addr)
		if err != nil {
			return nil, fmt.Errorf("contract %s: %w", name, err)
		}

		var contractABI abi.ABI
		if path, ok := artifacts[name]; ok {
			contractABI, err = LoadArtifact(path)
		} else {
			contractABI, err = EmbeddedABI(name)
		}
		if err != nil {
			return nil, fmt.Errorf("contract %s: %w", name, err)
		}
		r.Register(name, parsed.Common(), contractABI)
	}
	return r, nil
}

func NewRegistry() *Registry {
	return &Registry{contracts: make(map[models.ContractName]*Contract)}
}

// Register adds or replaces a contract. Call it during setup only.
func (r *Registry) Register(name models.ContractName, address common.Address, contractABI abi.ABI) {
	r.contracts[name] = &Contract{Name: name, Address: address, ABI: contractABI}
}

func (r *Registry) Get(name models.ContractName) (*Contract, error) {
	c, ok := r.contracts[name]
	if !ok {
		return nil, fmt.Errorf("contract %s is not configured", name)
	}
	return c, nil
}

func (r *Registry) Has(name models.ContractName) bool {
	_, ok := r.contracts[name]
	return ok
}

// EmbeddedABI returns the ABI bundled with the binary for name.
func EmbeddedABI(name models.ContractName) (abi.ABI, error) {
	raw, err := embeddedABIs.ReadFile("abi/" + name.String() + ".json")
	if err != nil {
		return abi.ABI{}, fmt.Errorf("no embedded ABI for %s: %w", name, err)
	}
	return abi.JSON(bytes.NewReader(raw))
}

// MustEmbeddedABI is EmbeddedABI for package level variables and tests.
func MustEmbeddedABI(name models.ContractName) abi.ABI {
	a, err := EmbeddedABI(name)
	if err != nil {
		panic(err)
	}
	return a
}

// LoadArtifact reads the "abi" field of a hardhat artifact file.
func LoadArtifact(path string) (abi.ABI, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to read artifact: %w", err)
	}
	var artifact struct {
		ABI json.RawMessage `json:"abi"`
	}
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse artifact %s: %w", path, err)
	}
	if len(artifact.ABI) == 0 {
		return abi.ABI{}, errors.New("artifact has no abi field: " + path)
	}
	return abi.JSON(bytes.NewReader(artifact.ABI))
}

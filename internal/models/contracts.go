package models

// ContractName identifies one of the contracts the orchestrator talks to
type ContractName string

const (
	Wallet   ContractName = "wallet"
	Payments ContractName = "payments"
	Product  ContractName = "product"
	NFT      ContractName = "nft"
)

// AllContracts lists every contract known to the orchestrator.
var AllContracts = []ContractName{Wallet, Payments, Product, NFT}

func (c ContractName) String() string {
	return string(c)
}

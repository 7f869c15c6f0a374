package cmd

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	url     string
	chainID uint16
	nonce   uint64
	to      string
	value   uint64
	tip     uint64
	data    []byte
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a transfer transaction",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			log.Fatal(err)
		}

		sendWithDetails(privateKey)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
	sendCmd.Flags().Uint16VarP(&chainID, "chain", "i", 1, "Chain id for the transaction.")
	sendCmd.Flags().Uint64VarP(&nonce, "nonce", "n", 0, "Nonce for the transaction.")
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Account receiving the transaction.")
	sendCmd.Flags().Uint64VarP(&value, "value", "v", 0, "Value to send.")
	sendCmd.Flags().Uint64VarP(&tip, "tip", "c", 0, "Tip to send.")
	sendCmd.Flags().BytesHexVarP(&data, "data", "d", nil, "Data to send.")
}

func sendWithDetails(privateKey *ecdsa.PrivateKey) {
	toAccount, err := database.ToAccountID(to)
	if err != nil {
		log.Fatal(err)
	}

	tx, err := database.NewTx(chainID, database.TxKindTransfer, nonce, toAccount, value, tip, data)
	if err != nil {
		log.Fatal(err)
	}

	signedTx, err := tx.Sign(privateKey)
	if err != nil {
		log.Fatal(err)
	}

	payload, err := json.Marshal(signedTx)
	if err != nil {
		log.Fatal(err)
	}

	resp, err := http.Post(fmt.Sprintf("%s/v1/tx/submit", url), "application/json", bytes.NewBuffer(payload))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	fmt.Println("status:", resp.Status)
}

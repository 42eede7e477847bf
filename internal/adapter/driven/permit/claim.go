package permit

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/url"
	"regexp"
	"strings"

	"github.com/ericfisherdev/bountybot/internal/domain/model"
)

// claimPayload is the JSON shape the claim page expects.
type claimPayload struct {
	Permit struct {
		Permitted struct {
			Token  string `json:"token"`
			Amount string `json:"amount"`
		} `json:"permitted"`
		Nonce    string `json:"nonce"`
		Deadline string `json:"deadline"`
	} `json:"permit"`
	TransferDetails struct {
		To              string `json:"to"`
		RequestedAmount string `json:"requestedAmount"`
	} `json:"transferDetails"`
	Owner     string `json:"owner"`
	Signature string `json:"signature"`
	NetworkID int64  `json:"networkId"`
}

var claimValue = regexp.MustCompile(`^[A-Za-z0-9%+/=_-]+`)

func encodeClaim(prefix string, p model.Permit) (string, error) {
	var c claimPayload
	c.Permit.Permitted.Token = p.Token
	c.Permit.Permitted.Amount = p.TokenAmount.String()
	c.Permit.Nonce = p.Nonce.String()
	c.Permit.Deadline = p.Deadline.String()
	c.TransferDetails.To = p.Recipient
	c.TransferDetails.RequestedAmount = p.TokenAmount.String()
	c.Owner = p.Owner
	c.Signature = p.Signature
	c.NetworkID = p.NetworkID

	raw, err := json.Marshal([]claimPayload{c})
	if err != nil {
		return "", fmt.Errorf("encode claim: %w", err)
	}

	encoded := url.QueryEscape(base64.StdEncoding.EncodeToString(raw))
	return fmt.Sprintf("%s%s&network=%d", prefix, encoded, p.NetworkID), nil
}

func decodeClaims(prefix, text string) []model.Permit {
	var permits []model.Permit

	for {
		i := strings.Index(text, prefix)
		if i < 0 {
			return permits
		}
		text = text[i+len(prefix):]

		value := claimValue.FindString(text)
		if value == "" {
			continue
		}
		permits = append(permits, decodeClaim(value)...)
	}
}

func decodeClaim(value string) []model.Permit {
	unescaped, err := url.QueryUnescape(value)
	if err != nil {
		return nil
	}
	raw, err := base64.StdEncoding.DecodeString(unescaped)
	if err != nil {
		return nil
	}

	var payloads []claimPayload
	if err := json.Unmarshal(raw, &payloads); err != nil {
		return nil
	}

	permits := make([]model.Permit, 0, len(payloads))
	for _, c := range payloads {
		p := model.Permit{
			Recipient: c.TransferDetails.To,
			Token:     c.Permit.Permitted.Token,
			Owner:     c.Owner,
			Signature: c.Signature,
			NetworkID: c.NetworkID,
		}
		p.TokenAmount, _ = new(big.Int).SetString(c.Permit.Permitted.Amount, 10)
		p.Nonce, _ = new(big.Int).SetString(c.Permit.Nonce, 10)
		p.Deadline, _ = new(big.Int).SetString(c.Permit.Deadline, 10)
		if p.Nonce == nil {
			continue
		}
		permits = append(permits, p)
	}
	return permits
}

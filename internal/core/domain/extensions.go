package domain

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"

	"github.com/trustfabric/trustfabric/internal/core/errors"
)

// Extension OIDs used in signing requests and issued certificates.
var (
	oidKeyUsage         = asn1.ObjectIdentifier{2, 5, 29, 15}
	oidBasicConstraints = asn1.ObjectIdentifier{2, 5, 29, 19}
	oidExtKeyUsage      = asn1.ObjectIdentifier{2, 5, 29, 37}

	oidEKUServerAuth = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 1}
	oidEKUClientAuth = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 2}
)

func reverseBitsInAByte(in byte) byte {
	b1 := in>>4 | in<<4
	b2 := b1>>2&0x33 | b1<<2&0xcc
	return b2>>1&0x55 | b2<<1&0xaa
}

func asn1BitLength(bitString []byte) int {
	bitLen := len(bitString) * 8
	for i := range bitString {
		b := bitString[len(bitString)-i-1]
		for bit := uint(0); bit < 8; bit++ {
			if (b>>bit)&1 == 1 {
				return bitLen
			}
			bitLen--
		}
	}
	return 0
}

// MarshalKeyUsageExtension encodes a key-usage bitmap as the DER extension
// a signing request carries.
func MarshalKeyUsageExtension(ku x509.KeyUsage) (pkix.Extension, error) {
	var a [2]byte
	a[0] = reverseBitsInAByte(byte(ku))
	a[1] = reverseBitsInAByte(byte(ku >> 8))

	l := 1
	if a[1] != 0 {
		l = 2
	}
	bitString := a[:l]
	value, err := asn1.Marshal(asn1.BitString{Bytes: bitString, BitLength: asn1BitLength(bitString)})
	if err != nil {
		return pkix.Extension{}, err
	}
	return pkix.Extension{Id: oidKeyUsage, Critical: true, Value: value}, nil
}

// ParseKeyUsageExtension decodes a key-usage extension value.
func ParseKeyUsageExtension(der []byte) (x509.KeyUsage, error) {
	var usageBits asn1.BitString
	if rest, err := asn1.Unmarshal(der, &usageBits); err != nil || len(rest) != 0 {
		return 0, errors.Wrapf(errors.ErrMalformedSubject, "key usage extension is not a valid bit string")
	}
	var usage x509.KeyUsage
	for i := 0; i < 9; i++ {
		if usageBits.At(i) != 0 {
			usage |= 1 << uint(i)
		}
	}
	return usage, nil
}

type basicConstraints struct {
	IsCA       bool `asn1:"optional"`
	MaxPathLen int  `asn1:"optional,default:-1"`
}

// MarshalBasicConstraintsExtension encodes a basic-constraints extension.
// A negative maxPathLen omits the path-length field.
func MarshalBasicConstraintsExtension(isCA bool, maxPathLen int) (pkix.Extension, error) {
	bc := basicConstraints{IsCA: isCA, MaxPathLen: maxPathLen}
	var (
		value []byte
		err   error
	)
	if maxPathLen < 0 {
		value, err = asn1.Marshal(basicConstraints{IsCA: isCA, MaxPathLen: -1})
	} else {
		value, err = asn1.Marshal(bc)
	}
	if err != nil {
		return pkix.Extension{}, err
	}
	return pkix.Extension{Id: oidBasicConstraints, Critical: true, Value: value}, nil
}

// MarshalExtKeyUsageExtension encodes an extended-key-usage extension. Only
// the usages this network issues (client and server authentication) are
// representable.
func MarshalExtKeyUsageExtension(usages []x509.ExtKeyUsage) (pkix.Extension, error) {
	var oids []asn1.ObjectIdentifier
	for _, u := range usages {
		switch u {
		case x509.ExtKeyUsageServerAuth:
			oids = append(oids, oidEKUServerAuth)
		case x509.ExtKeyUsageClientAuth:
			oids = append(oids, oidEKUClientAuth)
		default:
			return pkix.Extension{}, errors.Wrapf(errors.ErrUnsupportedAlgorithm, "extended key usage %d is not issuable", u)
		}
	}
	value, err := asn1.Marshal(oids)
	if err != nil {
		return pkix.Extension{}, err
	}
	return pkix.Extension{Id: oidExtKeyUsage, Value: value}, nil
}

// ParseExtKeyUsageExtension decodes an extended-key-usage extension value,
// ignoring OIDs outside the issuable set.
func ParseExtKeyUsageExtension(der []byte) ([]x509.ExtKeyUsage, error) {
	var oids []asn1.ObjectIdentifier
	if rest, err := asn1.Unmarshal(der, &oids); err != nil || len(rest) != 0 {
		return nil, errors.Wrapf(errors.ErrMalformedSubject, "extended key usage extension is not a valid OID sequence")
	}
	var usages []x509.ExtKeyUsage
	for _, oid := range oids {
		switch {
		case oid.Equal(oidEKUServerAuth):
			usages = append(usages, x509.ExtKeyUsageServerAuth)
		case oid.Equal(oidEKUClientAuth):
			usages = append(usages, x509.ExtKeyUsageClientAuth)
		}
	}
	return usages, nil
}

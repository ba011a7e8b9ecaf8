package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckMQTTTopic(t *testing.T) {

	assert := assert.New(t)

	topic, err := CheckMQTTTopic("ShellyPV")
	assert.NoError(err)
	assert.Equal("shellypv", topic)

	topic, err = CheckMQTTTopic("shelly_pv_40")
	assert.NoError(err)
	assert.Equal("shelly_pv_40", topic)

	for _, invalid := range []string{"", "shelly/pv", "shelly pv", "shelly#"} {
		_, err = CheckMQTTTopic(invalid)
		assert.Error(err, invalid)
	}
}

func TestCheckAccessType(t *testing.T) {

	assert := assert.New(t)

	assert.NoError(CheckAccessType(AccessTypeOnPremise))

	err := CheckAccessType("Cloud")
	assert.Error(err)
	var accessErr *AccessTypeError
	assert.ErrorAs(err, &accessErr)
	assert.Equal("Cloud", accessErr.AccessType)
}

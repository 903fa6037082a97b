package datasets

import (
	"context"
	"fmt"
	"gugu/internal/extract"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const profilesPage = `<html><body><table id="myTable04"><thead><tr><th>序号</th></tr></thead><tbody>
<tr><td>1</td><td>000001</td><td>平安银行</td><td>广东</td><td>深圳市</td><td>-</td><td>-</td><td>-</td><td>34,253</td><td>1991-04-03</td><td>-</td><td>-</td><td>银行</td><td>存款</td><td>商业银行业务</td></tr>
<tr><td>2</td><td>600000</td><td>浦发银行</td><td>上海</td><td>上海市</td><td>-</td><td>-</td><td>-</td><td>--</td><td>1999-11-10</td><td>-</td><td>-</td><td>银行</td><td>贷款</td><td>商业银行业务</td></tr>
</tbody></table></body></html>`

func TestStockProfilesAgainstServer(t *testing.T) {
	var pages []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("pageNum")
		pages = append(pages, r.URL.Query().Get("reportTime")+"/"+page)
		if page == "1" {
			fmt.Fprint(w, profilesPage)
			return
		}
		fmt.Fprint(w, `<html><body><table id="myTable04"><tbody></tbody></table></body></html>`)
	}))
	defer server.Close()

	d, ok := Builtin().Get("stock-profiles")
	require.True(t, ok)
	d.Spec.URL = server.URL + "/stock/a/?reportTime={year}-12-31&pageNum={page}"

	result, err := d.Run(context.Background(), testPipeline(t), testEnv(), Args{}, extract.Params{})
	require.NoError(t, err)
	require.Equal(t, []string{"2019-12-31/1", "2019-12-31/2"}, pages)
	require.Equal(t, [][]string{
		{"000001", "平安银行", "深圳市", "34253", "1991-04-03", "银行", "存款", "商业银行业务"},
		{"600000", "浦发银行", "上海市", "", "1999-11-10", "银行", "贷款", "商业银行业务"},
	}, result.Rows())
}

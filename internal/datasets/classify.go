package datasets

import "gugu/internal/extract"

var industryFiles = map[string]string{
	"sina": "newSinaHy.php",
	"sw":   "SwHy.php",
}

// categoryList reads the sina category objects, every value is a string
// like "new_blhy,玻璃行业,19,19.29,...".
func categoryList(name, url string) extract.DatasetSpec {
	return extract.DatasetSpec{
		Name:     name,
		URL:      url,
		Encoding: extract.EncodingGBK,
		Shape:    extract.ShapeQuasiJSON,
		QuasiJSON: extract.QuasiJSONOptions{
			Split:        "=",
			RowsPath:     "@values",
			SplitStrings: ",",
		},
		Columns: []extract.Column{text("tag"), text("name")},
		Ragged:  true,
	}
}

const (
	sinaIndustries = "http://vip.stock.finance.sina.com.cn/q/view/{file}"
	sinaConcepts   = "http://money.finance.sina.com.cn/q/view/newFLJK.php?param=class"
)

func categoryMembers(name string) extract.DatasetSpec {
	return extract.DatasetSpec{
		Name:     name,
		URL:      "http://vip.stock.finance.sina.com.cn/quotes_service/api/json_v2.php/Market_Center.getHQNodeData?page=1&num=1000&sort=symbol&asc=1&node={tag}&symbol=&_s_r_a=page",
		Encoding: extract.EncodingGBK,
		Shape:    extract.ShapeQuasiJSON,
		QuasiJSON: extract.QuasiJSONOptions{
			EndSentinel: "null",
			Fields:      []string{"code", "name"},
		},
		Columns: []extract.Column{code("code"), text("name")},
	}
}

func prepareIndustry(_ Env, args Args) (Request, error) {
	std, ok := args.str("std")
	if !ok {
		std = "sina"
	}
	file, ok := industryFiles[std]
	if !ok {
		return Request{}, invalid("std must be sina or sw, got %q", std)
	}
	return Request{Vars: map[string]string{"file": file}}, nil
}

// byCategory fetches the members of every listed category, the category
// name ends up in c_name.
func byCategory(list extract.DatasetSpec) *FanOut {
	return &FanOut{
		List:  list,
		Vars:  []Binding{{From: "tag", To: "tag"}},
		Carry: []Binding{{From: "name", To: "c_name"}},
	}
}

func classify() []Dataset {
	return []Dataset{
		{
			Name:        "industries",
			Group:       "classify",
			Description: "industry categories, sina or sw (shenwan) standard",
			ArgNames:    []string{"std"},
			Spec:        categoryList("industries", sinaIndustries),
			Prepare:     prepareIndustry,
		},
		{
			Name:        "concepts",
			Group:       "classify",
			Description: "concept categories",
			Spec:        categoryList("concepts", sinaConcepts),
		},
		{
			Name:        "by-industry",
			Group:       "classify",
			Description: "every stock with the industry it belongs to (one request per industry)",
			ArgNames:    []string{"std"},
			Spec:        categoryMembers("by-industry"),
			Prepare:     prepareIndustry,
			FanOut:      byCategory(categoryList("industries", sinaIndustries)),
		},
		{
			Name:        "by-concept",
			Group:       "classify",
			Description: "every stock with the concepts it belongs to (one request per concept)",
			Spec:        categoryMembers("by-concept"),
			FanOut:      byCategory(categoryList("concepts", sinaConcepts)),
		},
	}
}
